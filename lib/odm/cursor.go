package odm

import (
	"context"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"iter"
)

// Cursor lazily turns the documents of a store cursor into models. Every document passes the
// kind's schema checks; a document that fails them ends the iteration with the validation
// error. A Cursor can not be restarted and closes the store cursor once it is exhausted or
// fails.
type Cursor struct {
	kind    *Kind
	cur     docstore.ICursor
	current *Model
	err     error
	done    bool
}

func newCursor(k *Kind, cur docstore.ICursor) *Cursor {
	return &Cursor{kind: k, cur: cur}
}

// Next advances to the next model. It returns false when the cursor is exhausted or an error
// occurred; check Err afterwards.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.done {
		return false
	}
	if !c.cur.Next(ctx) {
		c.err = c.cur.Err()
		c.finish(ctx)
		return false
	}

	m, err := c.kind.rebuild(ctx, c.cur.Document())
	if err != nil {
		c.err = err
		c.finish(ctx)
		return false
	}
	c.current = m
	return true
}

// Model returns the model produced by the last successful call to Next
func (c *Cursor) Model() *Model {
	return c.current
}

// Err returns the error that ended the iteration, if any
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the store cursor. It is safe to call Close more than once.
func (c *Cursor) Close(ctx context.Context) error {
	if c.done {
		return nil
	}
	c.done = true
	c.current = nil
	return c.cur.Close(ctx)
}

func (c *Cursor) finish(ctx context.Context) {
	if err := c.Close(ctx); err != nil {
		log.Warningf("failed to close %s cursor: %v", c.kind.name, err)
	}
}

// All returns the remaining models as a sequence. An error is yielded once as the last element.
// Breaking out of the loop closes the cursor.
//
//	for m, err := range cur.All(ctx) {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (c *Cursor) All(ctx context.Context) iter.Seq2[*Model, error] {
	return func(yield func(*Model, error) bool) {
		defer c.finish(ctx)
		for c.Next(ctx) {
			if !yield(c.current, nil) {
				return
			}
		}
		if c.err != nil {
			yield(nil, c.err)
		}
	}
}
