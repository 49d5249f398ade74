package schema

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/schemascan/schemascan/core/platform"
	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

func TestExtractorsForCoverage(t *testing.T) {
	tests := []struct {
		vendor  string
		present []string
		absent  []string
	}{
		{
			vendor:  platform.MSSQL,
			present: Kinds,
		},
		{
			vendor: platform.Postgres,
			present: []string{
				KindTables, KindViews, KindProcedures, KindFunctions,
				KindTriggers, KindTypes, KindSequences, KindSecurity,
			},
			absent: []string{KindSynonyms},
		},
		{
			vendor: platform.MySQL,
			present: []string{
				KindTables, KindViews, KindProcedures, KindFunctions,
				KindTriggers, KindSecurity,
			},
			absent: []string{KindTypes, KindSequences, KindSynonyms},
		},
		{
			vendor: platform.Oracle,
			present: []string{
				KindTables, KindViews, KindProcedures, KindFunctions,
				KindTriggers, KindTypes, KindSequences, KindSynonyms,
			},
			absent: []string{KindSecurity},
		},
		{
			vendor:  platform.SQLite,
			present: []string{KindTables, KindViews, KindTriggers},
			absent: []string{
				KindProcedures, KindFunctions, KindTypes,
				KindSequences, KindSynonyms, KindSecurity,
			},
		},
	}

	policy := filter.NewPolicy(platform.Postgres, nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			c := qt.New(t)
			registry := extractorsFor(tt.vendor, nil, policy, nil)
			for _, kind := range tt.present {
				_, ok := registry[kind]
				c.Assert(ok, qt.IsTrue, qt.Commentf("kind %s should be registered", kind))
			}
			for _, kind := range tt.absent {
				_, ok := registry[kind]
				c.Assert(ok, qt.IsFalse, qt.Commentf("kind %s should be absent", kind))
			}
		})
	}
}

func TestExtractorsForUnknownVendor(t *testing.T) {
	c := qt.New(t)
	c.Assert(extractorsFor("db2", nil, nil, nil), qt.IsNil)
}

func TestAppendTriggersDeduplicates(t *testing.T) {
	c := qt.New(t)

	existing := []types.Trigger{
		{SchemaName: "dbo", Name: "trg_audit"},
	}
	incoming := []types.Trigger{
		{SchemaName: "dbo", Name: "trg_audit"},
		{SchemaName: "dbo", Name: "trg_sync"},
		{SchemaName: "sales", Name: "trg_audit"},
	}

	result := appendTriggers(existing, incoming)
	c.Assert(result, qt.HasLen, 3)
	c.Assert(result[1].FullName(), qt.Equals, "dbo.trg_sync")
	c.Assert(result[2].FullName(), qt.Equals, "sales.trg_audit")
}

func TestMergeHoistsTableTriggers(t *testing.T) {
	c := qt.New(t)

	policy := filter.NewPolicy(platform.Postgres, nil, nil, nil)
	s := NewScanner(nil, platform.Postgres, policy)
	db := &types.Database{}

	s.merge(db, KindTables, &types.ObjectSet{
		Tables: []types.Table{
			{
				SchemaName: "public",
				Name:       "orders",
				Triggers: []types.Trigger{
					{SchemaName: "public", Name: "orders_audit"},
				},
			},
		},
	})
	s.merge(db, KindTriggers, &types.ObjectSet{
		Triggers: []types.Trigger{
			{SchemaName: "public", Name: "orders_audit"},
			{SchemaName: "public", Name: "standalone"},
		},
	})

	c.Assert(db.Tables, qt.HasLen, 1)
	c.Assert(db.Triggers, qt.HasLen, 2)
	c.Assert(db.Triggers[0].Name, qt.Equals, "orders_audit")
	c.Assert(db.Triggers[1].Name, qt.Equals, "standalone")
}

func TestMergeSkipsTableTriggersWhenNotRequested(t *testing.T) {
	c := qt.New(t)

	policy := filter.NewPolicy(platform.Postgres, nil, nil, []string{KindTables})
	s := NewScanner(nil, platform.Postgres, policy)
	db := &types.Database{}

	s.merge(db, KindTables, &types.ObjectSet{
		Tables: []types.Table{
			{
				SchemaName: "public",
				Name:       "orders",
				Triggers: []types.Trigger{
					{SchemaName: "public", Name: "orders_audit"},
				},
			},
		},
	})

	c.Assert(db.Tables, qt.HasLen, 1)
	c.Assert(db.Triggers, qt.HasLen, 0)
}

func TestMergeSecuritySplitsLists(t *testing.T) {
	c := qt.New(t)

	policy := filter.NewPolicy(platform.MSSQL, nil, nil, nil)
	s := NewScanner(nil, platform.MSSQL, policy)
	db := &types.Database{}

	s.merge(db, KindSecurity, &types.ObjectSet{
		Users:           []types.User{{Name: "app"}},
		Roles:           []types.Role{{Name: "db_owner"}, {Name: "reporting"}},
		Permissions:     []types.Permission{{Grantee: "app", Permission: "SELECT"}},
		RoleMemberships: []types.RoleMembership{{RoleName: "reporting", MemberName: "app"}},
	})

	c.Assert(db.Users, qt.HasLen, 1)
	c.Assert(db.Roles, qt.HasLen, 2)
	c.Assert(db.Permissions, qt.HasLen, 1)
	c.Assert(db.RoleMemberships, qt.HasLen, 1)
	c.Assert(kindCount(db, KindSecurity), qt.Equals, 5)
}

func TestKindCount(t *testing.T) {
	c := qt.New(t)

	db := &types.Database{
		Tables: []types.Table{{Name: "a"}, {Name: "b"}},
		Views:  []types.View{{Name: "v"}},
	}
	c.Assert(kindCount(db, KindTables), qt.Equals, 2)
	c.Assert(kindCount(db, KindViews), qt.Equals, 1)
	c.Assert(kindCount(db, KindSequences), qt.Equals, 0)
}
