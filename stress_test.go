package schemamcp_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	schemamcp "github.com/rickchristie/supabase-schema-mcp"
)

func TestStress_ConcurrentMixedOperations(t *testing.T) {
	t.Parallel()
	p := newTestEngine(t,
		"CREATE TABLE public.orders (id int PRIMARY KEY, customer_id int)",
		"CREATE TABLE public.customers (id int PRIMARY KEY)",
		"ALTER TABLE public.orders ADD CONSTRAINT orders_customer_fk FOREIGN KEY (customer_id) REFERENCES public.customers (id)",
		"ALTER TABLE public.orders ENABLE ROW LEVEL SECURITY",
		"CREATE POLICY orders_read ON public.orders FOR SELECT USING (true)",
	)
	ctx := context.Background()

	ops := []func() error{
		func() error { _, err := p.ListTables(ctx, schemamcp.ListInput{SchemaName: "all"}); return err },
		func() error { _, err := p.ListColumns(ctx, schemamcp.TableFilterInput{}); return err },
		func() error { _, err := p.ListRLSPolicies(ctx, schemamcp.ListInput{}); return err },
		func() error { _, err := p.ListRLSCoverage(ctx, schemamcp.ListInput{}); return err },
		func() error { _, err := p.ListForeignKeys(ctx, schemamcp.ListInput{}); return err },
		func() error { _, err := p.ListIndexes(ctx, schemamcp.TableFilterInput{}); return err },
		func() error { _, err := p.ListFunctions(ctx, schemamcp.ListInput{SchemaName: "all"}); return err },
	}

	const goroutines = 30
	const callsPerGoroutine = 10

	var wg sync.WaitGroup
	var errCount atomic.Int64
	start := time.Now()

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				if err := ops[(id+j)%len(ops)](); err != nil {
					errCount.Add(1)
					t.Errorf("goroutine %d iter %d: %v", id, j, err)
				}
			}
		}(i)
	}
	wg.Wait()

	if errCount.Load() > 0 {
		t.Fatalf("%d errors in concurrent catalog reads", errCount.Load())
	}
	t.Logf("completed %d catalog reads in %v (%d goroutines)", goroutines*callsPerGoroutine, time.Since(start), goroutines)
}

func TestStress_ManyTables(t *testing.T) {
	t.Parallel()
	const tableCount = 150
	setup := make([]string, 0, tableCount)
	for i := 0; i < tableCount; i++ {
		setup = append(setup, fmt.Sprintf("CREATE TABLE public.t_%03d (id int PRIMARY KEY, label text, created_at timestamptz)", i))
	}
	p := newTestEngine(t, setup...)
	ctx := context.Background()

	tables, err := p.ListTables(ctx, schemamcp.ListInput{})
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(tables) != tableCount {
		t.Fatalf("expected %d tables, got %d", tableCount, len(tables))
	}
	for i, table := range tables {
		if want := fmt.Sprintf("t_%03d", i); table.Table != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, table.Table)
		}
	}

	columns, err := p.ListColumns(ctx, schemamcp.TableFilterInput{})
	if err != nil {
		t.Fatalf("ListColumns: %v", err)
	}
	if len(columns) != tableCount*3 {
		t.Fatalf("expected %d columns, got %d", tableCount*3, len(columns))
	}

	indexes, err := p.ListIndexes(ctx, schemamcp.TableFilterInput{})
	if err != nil {
		t.Fatalf("ListIndexes: %v", err)
	}
	if len(indexes) != tableCount {
		t.Fatalf("expected %d primary key indexes, got %d", tableCount, len(indexes))
	}
}

func TestStress_SmallPoolQueuesCallers(t *testing.T) {
	t.Parallel()
	connStr := acquireTestDB(t)
	config := schemamcp.DefaultConfig()
	config.Connection = connectionFromConnString(t, connStr)
	config.Pool.MinConns = 0
	config.Pool.MaxConns = 1
	p := schemamcp.New(config, testLogger())
	ctx := context.Background()
	defer p.Close(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.ListEnums(ctx, schemamcp.ListInput{SchemaName: "all"}); err != nil {
				t.Errorf("ListEnums with a single connection: %v", err)
			}
		}()
	}
	wg.Wait()
}
