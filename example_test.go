package memo_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/goforj/memo"
)

func ExampleGetOrCompute() {
	c := memo.New(memo.NewMemoryStore(context.Background()), memo.WithEnabled(true))
	defer c.Close()

	calls := 0
	hello := func() (string, error) {
		calls++
		return "Hello World", nil
	}
	first, _ := memo.GetOrCompute(c, "greeter.Hello", "World", memo.DefaultPolicy(), hello)
	second, _ := memo.GetOrCompute(c, "greeter.Hello", "World", memo.DefaultPolicy(), hello)
	fmt.Println(first, second, calls)
	// Output: Hello World Hello World 1
}

func ExampleDeriveKey() {
	a, _ := memo.DeriveKey("reports.MonthlyTotals", map[string]any{"month": 3, "region": "eu"})
	b, _ := memo.DeriveKey("reports.MonthlyTotals", map[string]any{"region": "eu", "month": 3})
	fmt.Println(a == b, strings.HasPrefix(a, "reports.MonthlyTotals:"))
	fmt.Println(memo.RefreshKey(a) == a+":refresh")
	// Output:
	// true true
	// true
}

func ExampleCoordinator_GetOrComputeString() {
	c := memo.New(memo.NewMemoryStore(context.Background()), memo.WithEnabled(false))
	defer c.Close()

	calls := 0
	for i := 0; i < 2; i++ {
		_, _ = c.GetOrComputeString("greeter.Hello", nil, memo.DefaultPolicy(), func() (string, error) {
			calls++
			return "Hello World", nil
		})
	}
	fmt.Println(calls)
	// Output: 2
}
