package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnevik/hfsmx"
)

func main() {
	m, err := hfsmx.New(func(b *hfsmx.GraphBuilder) {
		b.Initial("Red")
		b.State("Red").On("Timer", "Green")
		b.State("Green").On("Timer", "Yellow")
		b.State("Yellow").On("Timer", "Red")
		b.Observe(func(from hfsmx.StateKind, e hfsmx.Event, to hfsmx.StateKind) {
			fmt.Printf("observed: %s --%s--> %s\n", from, e.Kind, to)
		})
	})
	if err != nil {
		panic(err)
	}
	defer m.Stop()

	updates, cancel := m.Subscribe()
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ctx := context.Background()
	cycles := 0
	for {
		select {
		case <-ticker.C:
			som, err := m.Apply(ctx, hfsmx.NewEvent("Timer", nil)).Wait(ctx)
			if err != nil {
				fmt.Printf("apply error: %v\n", err)
				continue
			}
			fmt.Printf("\n--- Cycle %d ---\n", cycles+1)
			fmt.Println("Active paths:", som.Paths())
			select {
			case update := <-updates:
				fmt.Println("Published:", update.Paths())
			default:
			}
			cycles++
			if cycles >= 12 {
				if err := m.Export(ctx, "/tmp/traffic-light.dot", hfsmx.FormatDOT); err != nil {
					fmt.Printf("export error: %v\n", err)
				}
				fmt.Println("Demo complete after 12 cycles.")
				return
			}
		case <-sig:
			fmt.Println("\nShutting down gracefully...")
			return
		}
	}
}
