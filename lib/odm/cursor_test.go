package odm

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"reflect"
	"sort"
	"testing"
)

func saveWidgets(t *testing.T, k *Kind, n int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		color := "red"
		if i%2 == 1 {
			color = "blue"
		}
		m, err := k.New(ctx, map[string]any{"name": fmt.Sprintf("w%d", i), "color": color})
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Save(ctx); err != nil {
			t.Fatal(err)
		}
		id, _ := m.ID()
		ids = append(ids, id)
	}
	return ids
}

func TestCursorNext(t *testing.T) {
	env := newTestEnv(t)
	widget, _ := env.register(t, "widget", widgetDefinition())
	saveWidgets(t, widget, 5)
	ctx := context.Background()

	cur, err := widget.Find(ctx, map[string]any{"color": "red"})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		m := cur.Model()
		if m.Kind() != "widget" {
			t.Errorf("Expected kind widget, got %s", m.Kind())
		}
		if _, ok := m.ID(); !ok {
			t.Error("Cursor models must carry their identifier")
		}
		name, _ := m.Get("name")
		names = append(names, name.(string))
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("Cursor failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"w0", "w2", "w4"}) {
		t.Errorf("Expected [w0 w2 w4], got %v", names)
	}

	// not restartable
	if cur.Next(ctx) {
		t.Error("An exhausted cursor must not yield again")
	}
	if cur.Model() != nil {
		t.Error("An exhausted cursor has no current model")
	}
}

func TestCursorAll(t *testing.T) {
	env := newTestEnv(t)
	widget, _ := env.register(t, "widget", widgetDefinition())
	ids := saveWidgets(t, widget, 4)
	ctx := context.Background()

	cur, _ := widget.Find(ctx, nil)
	var got []string
	for m, err := range cur.All(ctx) {
		if err != nil {
			t.Fatalf("Iteration failed: %v", err)
		}
		id, _ := m.ID()
		got = append(got, id)
	}
	sort.Strings(got)
	sort.Strings(ids)
	if !reflect.DeepEqual(got, ids) {
		t.Errorf("Expected %v, got %v", ids, got)
	}
}

func TestCursorAllBreak(t *testing.T) {
	env := newTestEnv(t)
	widget, _ := env.register(t, "widget", widgetDefinition())
	saveWidgets(t, widget, 4)
	ctx := context.Background()

	cur, _ := widget.Find(ctx, nil)
	n := 0
	for range cur.All(ctx) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("Expected to stop after 2 models, got %d", n)
	}
	if cur.Next(ctx) {
		t.Error("Breaking out of All must close the cursor")
	}
}

func TestCursorStopsOnSchemaViolation(t *testing.T) {
	env := newTestEnv(t)
	widget, coll := env.register(t, "widget", widgetDefinition())
	ctx := context.Background()

	saveWidgets(t, widget, 1)
	_, _ = coll.ICollection.InsertOne(ctx, docstore.Document{"name": "bad", "weight": 3})
	saveWidgets(t, widget, 1)

	cur, _ := widget.Find(ctx, nil)
	n := 0
	var iterErr error
	for _, err := range cur.All(ctx) {
		if err != nil {
			iterErr = err
			break
		}
		n++
	}
	if n != 1 {
		t.Errorf("Expected 1 valid model before the violation, got %d", n)
	}
	if !errors.Is(iterErr, ErrAttributeNotAdmissible) || !errors.Is(cur.Err(), ErrAttributeNotAdmissible) {
		t.Errorf("Expected ErrAttributeNotAdmissible, got %v / %v", iterErr, cur.Err())
	}
	if cur.Next(ctx) {
		t.Error("A failed cursor must not continue")
	}
}

func TestFindBypassesCache(t *testing.T) {
	env := newTestEnv(t)
	widget, _ := env.register(t, "widget", widgetDefinition())
	ids := saveWidgets(t, widget, 2)
	ctx := context.Background()

	for _, id := range ids {
		_ = env.cache.ICacheStore.Delete(ctx, widget.CacheKey(id))
	}
	before := env.cache.total()

	cur, _ := widget.Find(ctx, nil)
	for _, err := range cur.All(ctx) {
		if err != nil {
			t.Fatal(err)
		}
	}
	if env.cache.total() != before {
		t.Errorf("Find must not touch the cache, got %d calls", env.cache.total()-before)
	}
	keys, _ := env.cache.ICacheStore.Keys(ctx, "cache:widget:*")
	if len(keys) != 0 {
		t.Errorf("Find must not populate the cache, found %v", keys)
	}
}
