package memstore

import (
	"context"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"github.com/ValentinKolb/dODM/lib/docstore/doctest"
	"testing"
)

func Test(t *testing.T) {
	doctest.RunDocumentStoreTests(t, "MemoryStore", func(t *testing.T) docstore.IDatabase {
		return NewMemoryDatabase()
	})
}

func TestAggregateUnsupported(t *testing.T) {
	coll := NewMemoryDatabase().Collection("widget")
	_, err := coll.Aggregate(context.Background(), []docstore.Document{{"$match": docstore.Document{}}})
	if !docstore.IsCode(err, docstore.RetCUnsupportedOperation) {
		t.Errorf("Expected RetCUnsupportedOperation, got %v", err)
	}
}

func TestStoredDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryDatabase().Collection("widget")

	nested := map[string]any{"k": "v"}
	id, _ := coll.InsertOne(ctx, docstore.Document{"name": "X", "nested": nested})
	nested["k"] = "changed"

	doc, _, _ := coll.FindByID(ctx, id)
	doc["name"] = "changed"

	again, _, _ := coll.FindByID(ctx, id)
	if again["name"] != "X" || again["nested"].(map[string]any)["k"] != "v" {
		t.Errorf("Stored document was modified through a shared reference: %v", again)
	}
}

func TestUniqueIndexOnExistingDuplicates(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryDatabase().Collection("widget")

	_, _ = coll.InsertOne(ctx, docstore.Document{"name": "X"})
	_, _ = coll.InsertOne(ctx, docstore.Document{"name": "X"})

	err := coll.CreateIndex(ctx, docstore.IndexSpec{Field: "name", Type: docstore.IndexTUnique})
	if !docstore.IsCode(err, docstore.RetCDuplicateKey) {
		t.Errorf("Expected RetCDuplicateKey, got %v", err)
	}

	// the failed index must not reject later inserts
	if _, err := coll.InsertOne(ctx, docstore.Document{"name": "X"}); err != nil {
		t.Errorf("Insert after failed index creation should succeed, got %v", err)
	}
}
