// Package recordstore provides a schema-driven record table over the
// SQLite storage engine.
//
// A table is opened in two steps. Open returns a Handle at once and
// declares the table in the background; while the declaration runs the
// Handle is Opening and every operation on it fails with a NOT_READY
// error. Wait blocks until the declaration finishes and returns the Ready
// Table, whose operations never report NOT_READY:
//
//	st, err := store.Open("app.db")
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	users, err := recordstore.OpenTable(ctx, st, usersSchema)
//	if err != nil {
//		return err
//	}
//	defer users.Close()
//
//	id, err := users.Add(ctx, ir.NewObject(ir.P("email", ir.String("a@b.c"))))
//
// Records are matched by exact equality of one field. Update changes only
// the first match in identifier order. Closing a Table or Handle does not
// close the engine; the engine belongs to whoever opened it.
package recordstore
