package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/forever-free1/bidindex/loader"
	"github.com/forever-free1/bidindex/storage"
	"github.com/forever-free1/bidindex/storage/index"
	"github.com/forever-free1/bidindex/storage/session"
)

const menuText = `Menu:
  1. Load Bids
  2. Display All Bids
  3. Enter a Bid
  4. Prepend a Bid
  5. Find Bid
  6. Remove Bid
  7. Selection Sort All Bids
  8. Quick Sort All Bids
  9. Exit
Enter choice: `

// console 是交互式菜单，输入输出可替换以便测试
type console struct {
	sess       *session.Session
	in         *bufio.Scanner
	out        io.Writer
	csvPath    string
	defaultKey string
	stripChar  rune
	loaderOpts []loader.Option

	// interrupt 为一次加载派生可被 Ctrl-C 取消的 ctx
	interrupt func(context.Context) (context.Context, context.CancelFunc)
}

func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

func newConsole(sess *session.Session, in io.Reader, out io.Writer) *console {
	return &console{
		sess:       sess,
		in:         bufio.NewScanner(in),
		out:        out,
		defaultKey: "98109",
		stripChar:  storage.DefaultStripChar,
		interrupt:  interruptContext,
	}
}

// run 循环读取菜单选项，选择 9 或输入结束时返回
func (c *console) run(ctx context.Context) {
	defer fmt.Fprintln(c.out, "Good bye.")

	for {
		fmt.Fprint(c.out, menuText)
		line, ok := c.readLine()
		if !ok {
			fmt.Fprintln(c.out)
			return
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintln(c.out, "Invalid choice, please try again")
			continue
		}

		switch choice {
		case 1:
			c.timed(func() { c.load(ctx) })
		case 2:
			c.timed(c.display)
		case 3:
			c.enter(c.sess.Insert)
		case 4:
			c.enter(c.sess.Prepend)
		case 5:
			c.find()
		case 6:
			c.remove()
		case 7:
			c.sort(session.SortSelection)
		case 8:
			c.sort(session.SortQuick)
		case 9:
			return
		default:
			fmt.Fprintln(c.out, "Not a valid selection.")
		}
	}
}

func (c *console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	line, ok := c.readLine()
	return strings.TrimSpace(line), ok
}

// bidID 读取 ID，空输入使用默认搜索键
func (c *console) bidID() (string, bool) {
	fmt.Fprintln(c.out, "Enter a bid ID")
	id, ok := c.prompt("")
	if !ok {
		return "", false
	}
	if id == "" {
		id = c.defaultKey
	}
	return id, true
}

func (c *console) timed(fn func()) {
	start := time.Now()
	fn()
	c.printElapsed(time.Since(start))
}

func (c *console) printElapsed(d time.Duration) {
	fmt.Fprintf(c.out, "time: %v\n", d)
}

func (c *console) load(ctx context.Context) {
	fmt.Fprintf(c.out, "Loading CSV file %s\n", c.csvPath)

	// 顺序表重新加载时替换原有内容，回到文件顺序
	if c.sess.Backend() == index.TypeSequence {
		_ = c.sess.Close()
	}

	ctx, stop := c.interrupt(ctx)
	defer stop()

	src := loader.Open(c.csvPath, c.loaderOpts...)
	stats, err := c.sess.Load(ctx, src)
	if csvSrc, ok := src.(*loader.CSVSource); ok && csvSrc.Header() != nil {
		fmt.Fprintln(c.out, strings.Join(csvSrc.Header(), " | "))
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	fmt.Fprintf(c.out, "%d bids read", stats.Inserted)
	if stats.Duplicates > 0 || stats.Rejected > 0 {
		fmt.Fprintf(c.out, " (%d duplicates, %d rejected)", stats.Duplicates, stats.Rejected)
	}
	fmt.Fprintln(c.out)
}

func (c *console) display() {
	fmt.Fprintln(c.out, "Displaying bids")

	n := 0
	if buckets, ok := c.sess.Buckets(); ok {
		for _, b := range buckets {
			for i, r := range b.Records {
				if i == 0 {
					fmt.Fprintf(c.out, "Key %d %s\n", b.Index, r)
				} else {
					fmt.Fprintf(c.out, "\t%s\n", r)
				}
				n++
			}
		}
	} else {
		for _, r := range c.sess.All() {
			fmt.Fprintln(c.out, r)
			n++
		}
	}
	fmt.Fprintf(c.out, "%d bids displayed\n", n)
	if sum, ok := c.sess.TreeStats(); ok && sum.Size > 0 {
		fmt.Fprintf(c.out, "Tree height %d, min id %s, max id %s\n", sum.Height, sum.Min.ID, sum.Max.ID)
	}
}

func (c *console) enter(op func(storage.Record) error) {
	var r storage.Record
	var amount string
	fields := []struct {
		label string
		dst   *string
	}{
		{"Enter Id: ", &r.ID},
		{"Enter title: ", &r.Title},
		{"Enter fund: ", &r.Fund},
		{"Enter amount: ", &amount},
	}
	for _, f := range fields {
		v, ok := c.prompt(f.label)
		if !ok {
			return
		}
		*f.dst = v
	}
	r.Amount = storage.ParseAmount(amount, c.stripChar)

	start := time.Now()
	if err := op(r); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printElapsed(time.Since(start))
}

func (c *console) find() {
	id, ok := c.bidID()
	if !ok {
		return
	}

	start := time.Now()
	r, err := c.sess.Search(id)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		fmt.Fprintln(c.out, r)
	case errors.Is(err, storage.ErrKeyNotFound):
		fmt.Fprintf(c.out, "Bid Id %s not found.\n", id)
	default:
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	c.printElapsed(elapsed)
}

func (c *console) remove() {
	id, ok := c.bidID()
	if !ok {
		return
	}

	start := time.Now()
	removed, err := c.sess.Remove(id)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		fmt.Fprintf(c.out, "Error: %v\n", err)
	case removed:
		fmt.Fprintf(c.out, "Bid Id %s removed.\n", id)
	default:
		fmt.Fprintf(c.out, "Bid Id %s not found.\n", id)
	}
	c.printElapsed(elapsed)
}

func (c *console) sort(algo session.SortAlgorithm) {
	start := time.Now()
	if err := c.sess.Sort(storage.FieldTitle, algo); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	elapsed := time.Since(start)
	fmt.Fprintf(c.out, "%d bids sorted\n", c.sess.Size())
	c.printElapsed(elapsed)
}
