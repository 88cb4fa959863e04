// Package async provides panic-safe, timeout-bounded background execution.
//
//	async.SafeGo(ctx, 5*time.Second, "normalize vote type", func(ctx context.Context) error {
//		return store.NormalizeVoteObjectType(ctx, id, kind)
//	})
//
// A Tracker does the same but remembers the tasks so shutdown can drain them.
package async
