// Package doctest provides a conformance test suite for docstore.IDatabase implementations.
package doctest

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"testing"
)

// Factory creates a fresh, empty database.
type Factory func(t *testing.T) docstore.IDatabase

// RunDocumentStoreTests runs the full conformance suite against a backend.
func RunDocumentStoreTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Insert&Find", func(t *testing.T) {
			testInsertFind(t, factory(t))
		})
		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory(t))
		})
		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})
		t.Run("Cursor", func(t *testing.T) {
			testCursor(t, factory(t))
		})
		t.Run("UniqueIndex", func(t *testing.T) {
			testUniqueIndex(t, factory(t))
		})
		t.Run("Identifier", func(t *testing.T) {
			testIdentifier(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertFind(t *testing.T, db docstore.IDatabase) {
	ctx := context.Background()
	defer db.Close(ctx)
	coll := db.Collection("widget")

	id, err := coll.InsertOne(ctx, docstore.Document{"name": "X", "color": "red"})
	if err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if id == "" {
		t.Fatal("InsertOne returned an empty identifier")
	}

	doc, found, err := coll.FindByID(ctx, id)
	if err != nil || !found {
		t.Fatalf("FindByID failed (found=%v, err=%v)", found, err)
	}
	if doc[docstore.IDField] != id {
		t.Errorf("Expected _id %s as string, got %#v", id, doc[docstore.IDField])
	}
	if doc["name"] != "X" || doc["color"] != "red" {
		t.Errorf("Unexpected document: %v", doc)
	}

	if _, found, err := coll.FindByID(ctx, "000000000000000000000000"); found || err != nil {
		t.Errorf("Expected missing document to report found=false, err=nil (found=%v, err=%v)", found, err)
	}
}

func testUpdate(t *testing.T, db docstore.IDatabase) {
	ctx := context.Background()
	defer db.Close(ctx)
	coll := db.Collection("widget")

	id, _ := coll.InsertOne(ctx, docstore.Document{"name": "X"})

	matched, err := coll.UpdateByID(ctx, id, docstore.Document{"color": "red"})
	if err != nil || !matched {
		t.Fatalf("UpdateByID failed (matched=%v, err=%v)", matched, err)
	}

	doc, _, _ := coll.FindByID(ctx, id)
	if doc["name"] != "X" || doc["color"] != "red" {
		t.Errorf("Partial update should keep untouched fields, got %v", doc)
	}

	matched, err = coll.UpdateByID(ctx, "000000000000000000000000", docstore.Document{"color": "red"})
	if err != nil || matched {
		t.Errorf("Expected update of missing document to report matched=false (matched=%v, err=%v)", matched, err)
	}

	if _, err := coll.UpdateByID(ctx, id, docstore.Document{docstore.IDField: "other"}); err == nil {
		t.Error("Expected an error when updating the identifier")
	}
}

func testDelete(t *testing.T, db docstore.IDatabase) {
	ctx := context.Background()
	defer db.Close(ctx)
	coll := db.Collection("widget")

	id, _ := coll.InsertOne(ctx, docstore.Document{"name": "X"})
	for i := 0; i < 3; i++ {
		_, _ = coll.InsertOne(ctx, docstore.Document{"name": fmt.Sprintf("bulk-%d", i), "color": "blue"})
	}

	deleted, err := coll.DeleteByID(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("DeleteByID failed (deleted=%v, err=%v)", deleted, err)
	}
	if _, found, _ := coll.FindByID(ctx, id); found {
		t.Error("Document should be gone after DeleteByID")
	}
	if deleted, _ := coll.DeleteByID(ctx, id); deleted {
		t.Error("Deleting twice should report deleted=false")
	}

	n, err := coll.DeleteMany(ctx, docstore.Filter{"color": "blue"})
	if err != nil || n != 3 {
		t.Errorf("Expected DeleteMany to remove 3 documents, got %d (err=%v)", n, err)
	}

	_, _ = coll.InsertOne(ctx, docstore.Document{"name": "Y"})
	n, _ = coll.DeleteMany(ctx, docstore.Filter{})
	if n != 1 {
		t.Errorf("Expected an empty filter to remove every document, removed %d", n)
	}
}

func testCursor(t *testing.T, db docstore.IDatabase) {
	ctx := context.Background()
	defer db.Close(ctx)
	coll := db.Collection("widget")

	for i := 0; i < 5; i++ {
		color := "red"
		if i%2 == 1 {
			color = "green"
		}
		_, _ = coll.InsertOne(ctx, docstore.Document{"name": fmt.Sprintf("w%d", i), "color": color, "rank": int64(i)})
	}

	cur, err := coll.Find(ctx, docstore.Filter{"color": "red"})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	defer cur.Close(ctx)

	count := 0
	for cur.Next(ctx) {
		doc := cur.Document()
		if doc["color"] != "red" {
			t.Errorf("Cursor yielded a non-matching document: %v", doc)
		}
		if _, ok := doc[docstore.IDField].(string); !ok {
			t.Errorf("Cursor document should carry a string _id, got %#v", doc[docstore.IDField])
		}
		count++
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("Cursor error: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 red documents, got %d", count)
	}
	if cur.Next(ctx) {
		t.Error("An exhausted cursor must not restart")
	}

	cur, _ = coll.Find(ctx, docstore.Filter{"rank": 4})
	count = 0
	for cur.Next(ctx) {
		count++
	}
	if count != 1 {
		t.Errorf("Expected numeric filter to match 1 document regardless of integer width, got %d", count)
	}
}

func testUniqueIndex(t *testing.T, db docstore.IDatabase) {
	ctx := context.Background()
	defer db.Close(ctx)
	coll := db.Collection("widget")

	if err := coll.CreateIndex(ctx, docstore.IndexSpec{Field: "name", Type: docstore.IndexTUnique}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	// idempotent
	if err := coll.CreateIndex(ctx, docstore.IndexSpec{Field: "name", Type: docstore.IndexTUnique}); err != nil {
		t.Fatalf("Second CreateIndex failed: %v", err)
	}
	if err := coll.CreateIndex(ctx, docstore.IndexSpec{Field: "color", Type: docstore.IndexTRegular}); err != nil {
		t.Fatalf("CreateIndex (regular) failed: %v", err)
	}
	if err := coll.CreateIndex(ctx, docstore.IndexSpec{Field: "address_loc", Type: docstore.IndexTGeo}); err != nil {
		t.Fatalf("CreateIndex (geo) failed: %v", err)
	}

	if _, err := coll.InsertOne(ctx, docstore.Document{"name": "X"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	_, err := coll.InsertOne(ctx, docstore.Document{"name": "X"})
	if !docstore.IsCode(err, docstore.RetCDuplicateKey) {
		t.Errorf("Expected RetCDuplicateKey, got %v", err)
	}

	id, _ := coll.InsertOne(ctx, docstore.Document{"name": "Y"})
	if _, err := coll.UpdateByID(ctx, id, docstore.Document{"name": "X"}); !docstore.IsCode(err, docstore.RetCDuplicateKey) {
		t.Errorf("Expected RetCDuplicateKey on update, got %v", err)
	}
}

func testIdentifier(t *testing.T, db docstore.IDatabase) {
	ctx := context.Background()
	defer db.Close(ctx)
	coll := db.Collection("widget")

	_, err := coll.InsertOne(ctx, docstore.Document{docstore.IDField: "mine", "name": "X"})
	if !docstore.IsCode(err, docstore.RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for a client supplied identifier, got %v", err)
	}

	a, _ := coll.InsertOne(ctx, docstore.Document{"name": "A"})
	b, _ := coll.InsertOne(ctx, docstore.Document{"name": "B"})
	if a == b {
		t.Errorf("Identifiers must be unique, got %s twice", a)
	}

	cur, _ := coll.Find(ctx, docstore.Filter{docstore.IDField: b})
	defer cur.Close(ctx)
	if !cur.Next(ctx) || cur.Document()["name"] != "B" {
		t.Error("Expected filter on the string identifier to find the document")
	}
}
