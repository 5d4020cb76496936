package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"orderqueue/pkg/order"
	"orderqueue/pkg/syncer"
)

const help = `commands:
  show                         current order, pending and completed orders
  open <orderId>               pick a different order
  complete <itemIndex>         mark an item of the current order complete
  unavailable <itemIndex>      mark an item of the current order unavailable
  mark <orderId> <index> <st>  set any item to any status
  queue                        list changes waiting for the store
  offline | online             set the network presence signal
  reset                        reset the store and start over
  quit`

type repl struct {
	queue   *syncer.Queue
	monitor *syncer.Monitor
	out     io.Writer
}

func newREPL(queue *syncer.Queue, monitor *syncer.Monitor, out io.Writer) *repl {
	return &repl{queue: queue, monitor: monitor, out: out}
}

// Run reads commands from in until EOF, "quit" or ctx is done.
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.show()
	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.exec(ctx, line); quit {
				return nil
			}
		}
	}
}

func (r *repl) exec(ctx context.Context, line string) (quit bool) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(r.out, help)
	case "show":
		r.show()
	case "queue":
		changes := r.queue.PendingChanges()
		if len(changes) == 0 {
			fmt.Fprintln(r.out, "no pending changes")
		}
		for _, ch := range changes {
			fmt.Fprintf(r.out, "order #%d item %d -> %s\n", ch.OrderID, ch.ItemIndex, ch.Status)
		}
	case "open":
		id, err := intArg(args, 1)
		if err != nil {
			r.fail(err)
			return false
		}
		if err := r.queue.Select(ctx, id); err != nil {
			r.fail(err)
			return false
		}
		r.show()
	case "complete", "unavailable":
		idx, err := intArg(args, 1)
		if err != nil {
			r.fail(err)
			return false
		}
		cur, ok := r.queue.Current()
		if !ok {
			r.fail(errors.New("no current order"))
			return false
		}
		r.mark(ctx, cur.ID, idx, order.Status(args[0]))
	case "mark":
		id, err := intArg(args, 1)
		if err != nil {
			r.fail(err)
			return false
		}
		idx, err := intArg(args, 2)
		if err != nil {
			r.fail(err)
			return false
		}
		if len(args) < 4 {
			r.fail(errors.New("missing status"))
			return false
		}
		r.mark(ctx, id, idx, order.Status(args[3]))
	case "offline":
		r.monitor.SetNetwork(ctx, false)
		r.status()
	case "online":
		r.monitor.SetNetwork(ctx, true)
		r.status()
	case "reset":
		if err := r.queue.Reset(ctx); err != nil {
			r.fail(err)
		}
		r.show()
	default:
		fmt.Fprintf(r.out, "unknown command %q, try help\n", args[0])
	}
	return false
}

func (r *repl) mark(ctx context.Context, orderID, idx int, status order.Status) {
	if err := r.queue.SetItemStatus(ctx, orderID, idx, status); err != nil {
		r.fail(err)
		return
	}
	r.show()
}

func (r *repl) show() {
	r.status()
	cur, ok := r.queue.Current()
	if !ok {
		fmt.Fprintln(r.out, "Loading...")
		return
	}
	fmt.Fprintf(r.out, "Order #%d\n", cur.ID)
	for i, it := range cur.Items {
		fmt.Fprintf(r.out, "  [%d] %s - %s\n", i, it.Name, it.Status)
	}
	fmt.Fprintf(r.out, "Pending orders: %s\n", ids(r.queue.PendingOrders()))
	fmt.Fprintf(r.out, "Pending sync completed orders: %s\n", ids(r.queue.CompletedOrders()))
}

func (r *repl) status() {
	state := "Offline"
	if r.monitor.Online() {
		state = "Online"
	}
	fmt.Fprintf(r.out, "[%s] queued changes: %d\n", state, len(r.queue.PendingChanges()))
}

func (r *repl) fail(err error) {
	fmt.Fprintf(r.out, "error: %v\n", err)
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%s: missing argument", args[0])
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", args[0], args[i])
	}
	return n, nil
}

func ids(orders []order.Order) string {
	if len(orders) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		parts = append(parts, "#"+strconv.Itoa(o.ID))
	}
	return strings.Join(parts, " ")
}
