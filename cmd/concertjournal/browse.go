package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"concertjournal/internal/listing"
	"concertjournal/internal/models"
)

const browseHelp = `n          next page
/text      search (empty clears)
s <sort>   sort by default, date_asc, date_desc or title
x <id>     toggle selection
d          delete selected
q          quit`

func browseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "page through the journal interactively",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page-size", Usage: "concerts per page", Value: models.DefaultPageSize},
		},
		Action: func(c *cli.Context) error {
			return withApplication(c, func(a *application) error {
				state, err := listing.New(c.Context, a.concerts, a.settings, a.bus, listing.Options{
					PageSize: c.Int("page-size"),
				})
				if err != nil {
					return err
				}
				defer state.Close()
				return runBrowse(c.Context, state, c.App.Reader, c.App.Writer)
			})
		},
	}
}

// runBrowse reads commands from in until q or EOF.
func runBrowse(ctx context.Context, state *listing.State, in io.Reader, out io.Writer) error {
	if err := state.Refresh(ctx); err != nil {
		return err
	}
	printPage(out, state.Snapshot(), 0)
	fmt.Fprintln(out, browseHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		before := len(state.Snapshot().Items)
		var err error
		switch {
		case line == "":
			continue
		case line == "q":
			return nil
		case line == "n":
			if !state.Snapshot().HasMore {
				fmt.Fprintln(out, "no more concerts")
				continue
			}
			err = state.LoadMore(ctx)
			if err == nil {
				printPage(out, state.Snapshot(), before)
			}
		case strings.HasPrefix(line, "/"):
			err = state.ApplySearch(ctx, line[1:])
			if err == nil {
				printPage(out, state.Snapshot(), 0)
			}
		case strings.HasPrefix(line, "s "):
			key, ok := models.ParseSortKey(line[2:])
			if !ok {
				fmt.Fprintf(out, "unknown sort %q\n", strings.TrimSpace(line[2:]))
				continue
			}
			err = state.SetSort(ctx, key)
			if err == nil {
				printPage(out, state.Snapshot(), 0)
			}
		case strings.HasPrefix(line, "x "):
			id, perr := strconv.ParseInt(strings.TrimSpace(line[2:]), 10, 64)
			if perr != nil {
				fmt.Fprintf(out, "invalid id %q\n", line[2:])
				continue
			}
			if state.Toggle(id) {
				fmt.Fprintf(out, "selected %d\n", id)
			} else {
				fmt.Fprintf(out, "unselected %d\n", id)
			}
		case line == "d":
			n := len(state.Snapshot().Selected)
			if n == 0 {
				fmt.Fprintln(out, "nothing selected")
				continue
			}
			err = state.DeleteSelected(ctx)
			if err == nil {
				fmt.Fprintf(out, "deleted %d concerts\n", n)
				printPage(out, state.Snapshot(), 0)
			}
		default:
			fmt.Fprintln(out, browseHelp)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// printPage writes the items from index from onwards.
func printPage(out io.Writer, snap listing.Snapshot, from int) {
	if len(snap.Items) == 0 {
		fmt.Fprintln(out, "no concerts")
		return
	}
	selected := make(map[int64]bool, len(snap.Selected))
	for _, id := range snap.Selected {
		selected[id] = true
	}
	for _, c := range snap.Items[from:] {
		mark := " "
		if selected[c.ID] {
			mark = "*"
		}
		date := models.FormatDate(c.Date)
		if date == "" {
			date = "----------"
		}
		fmt.Fprintf(out, "%s %4d  %s  %s  %s\n", mark, c.ID, date, c.EventTitle, strings.Join(c.Performers, ", "))
	}
	if snap.HasMore {
		fmt.Fprintln(out, "  ... n for more")
	}
}
