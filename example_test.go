package minlsh_test

import (
	"context"
	"fmt"

	"github.com/hupe1980/minlsh"
)

func Example() {
	ctx := context.Background()

	index, err := minlsh.New(
		minlsh.WithNumPerm(4),
		minlsh.WithParams(2, 2),
	)
	if err != nil {
		panic(err)
	}

	// Signatures normally come from MinHashing the sets to compare; tiny
	// hand-written ones keep the example self-contained.
	if err := index.Insert(ctx, "doc-a", minlsh.Signature{1, 2, 3, 4}); err != nil {
		panic(err)
	}
	if err := index.Insert(ctx, "doc-b", minlsh.Signature{9, 9, 9, 9}); err != nil {
		panic(err)
	}

	// Agrees with doc-a on the first band, with neither on the second.
	candidates, err := index.Query(ctx, minlsh.Signature{1, 2, 7, 7})
	if err != nil {
		panic(err)
	}

	fmt.Println(candidates)
	// Output:
	// [doc-a]
}

func ExampleMinHashLSH_InsertionSession() {
	ctx := context.Background()

	index, err := minlsh.New(
		minlsh.WithNumPerm(4),
		minlsh.WithParams(2, 2),
	)
	if err != nil {
		panic(err)
	}

	sess := index.InsertionSession()
	defer sess.Close(ctx)

	records := map[string]minlsh.Signature{
		"doc-a": {1, 2, 3, 4},
		"doc-b": {1, 2, 9, 9},
	}
	for key, sig := range records {
		if err := sess.Insert(ctx, key, sig); err != nil {
			panic(err)
		}
	}
	if err := sess.Close(ctx); err != nil {
		panic(err)
	}

	ok, err := index.Contains(ctx, "doc-a")
	if err != nil {
		panic(err)
	}
	fmt.Println(ok)
	// Output:
	// true
}
