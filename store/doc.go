// Package store provides a typed DynamoDB data access layer built on
// single-key conditional writes.
//
// Every operation is atomic with respect to its own key; nothing here spans
// multiple keys or tables. Higher layers (catalog, ledger, handle, profile)
// derive all of their concurrency guarantees from the conditional
// primitives exposed by [Table]:
//
//   - [Table.PutIfAbsent] - succeeds only when no record exists at the key
//   - [Table.DeleteIfPresent] - succeeds only when a record exists
//   - [Table.Add] - server-side additive counter update, floored at zero
//
// Conditional failures are reported as ordinary false results, not errors,
// so callers can treat a lost race as the idempotent no-op it is.
//
// # Client
//
// [Client] is the subset of *dynamodb.Client the package uses. Tests
// substitute an in-memory implementation that honors the same conditional
// semantics; production code passes the real client.
//
// # Records
//
// Records are plain structs marshaled with the attributevalue package and
// `dynamodbav` tags:
//
//	type Like struct {
//	    UserID    string `dynamodbav:"user_id"`
//	    ItemID    string `dynamodbav:"item_id"`
//	    CreatedAt string `dynamodbav:"created_at"`
//	}
//
//	likes := store.NewCompositeTable[Like](client, "likes", "user_id", "item_id")
package store
