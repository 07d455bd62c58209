// Command levels checks and inspects level files.
//
//	levels validate [--solve]   parse and validate every file in the level directory
//	levels analyze              summarize each level and its shortest solution
//	levels solve <level>        print a shortest solution and replay it
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/boxpush/game/config"
	"github.com/wricardo/boxpush/game/engine"
	"github.com/wricardo/boxpush/game/level"
	"github.com/wricardo/boxpush/game/solver"
	"golang.org/x/sync/errgroup"
)

var errInvalidLevels = errors.New("some levels are invalid")

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "levels: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "levels",
		Usage: "validate, analyze and solve box-pushing levels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "levels",
				Usage:   "level directory",
				Sources: cli.EnvVars("LEVEL_DIR"),
			},
			&cli.IntFlag{
				Name:  "max-states",
				Value: solver.DefaultMaxStates,
				Usage: "maximum positions explored per level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "parse and validate every level file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "solve", Usage: "also require each level to be solvable"},
				},
				Action: runValidate,
			},
			{
				Name:   "analyze",
				Usage:  "print size, piece counts and shortest solution length per level",
				Action: runAnalyze,
			},
			{
				Name:      "solve",
				Usage:     "print a shortest solution for one level",
				ArgsUsage: "<level>",
				Action:    runSolve,
			},
		},
	}
}

func openLevels(cmd *cli.Command) (*config.Manager, error) {
	return config.NewManager(cmd.String("dir"))
}

// FileResult is the outcome of validating one level file.
type FileResult struct {
	File   string
	Err    error
	Note   string
	Failed bool
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	levels, err := openLevels(cmd)
	if err != nil {
		return err
	}

	results, err := validateLevels(ctx, levels, cmd.Bool("solve"), int(cmd.Int("max-states")))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	failed := 0
	for _, r := range results {
		switch {
		case r.Failed:
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", r.File, r.Err)
		case r.Note != "":
			fmt.Fprintf(out, "✓ %s (%s)\n", r.File, r.Note)
		default:
			fmt.Fprintf(out, "✓ %s\n", r.File)
		}
	}
	fmt.Fprintf(out, "\n%d files, %d invalid\n", len(results), failed)

	if failed > 0 {
		return errInvalidLevels
	}
	return nil
}

func validateLevels(ctx context.Context, levels *config.Manager, solve bool, maxStates int) ([]FileResult, error) {
	files, err := levels.Files()
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := FileResult{File: f.Filename}
			defer func() { results[i] = r }()

			def, err := levels.LoadLevel(f.ID)
			if err != nil {
				r.Err, r.Failed = err, true
				return nil
			}
			if !solve {
				return nil
			}

			res, err := solveLevel(def, maxStates)
			switch {
			case errors.Is(err, solver.ErrStateLimit):
				r.Note = "solvability unknown: " + err.Error()
			case err != nil:
				r.Err, r.Failed = err, true
			default:
				r.Note = fmt.Sprintf("solvable in %d moves", len(res.Moves))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func solveLevel(def *level.Definition, maxStates int) (*solver.Result, error) {
	e, err := engine.NewEngine(def)
	if err != nil {
		return nil, err
	}
	puzzle, err := solver.FromEngine(e)
	if err != nil {
		return nil, err
	}
	return puzzle.Solve(maxStates)
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	levels, err := openLevels(cmd)
	if err != nil {
		return err
	}

	infos, err := levels.ListLevels()
	if err != nil {
		return err
	}

	maxStates := int(cmd.Int("max-states"))
	reports := make([]string, len(infos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, info := range infos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			def, err := levels.LoadLevel(info.LevelID)
			if err != nil {
				return err
			}

			var b strings.Builder
			source := info.Filename
			if info.Builtin {
				source = "built-in"
			}
			fmt.Fprintf(&b, "=== %s (%s) ===\n", info.LevelID, source)
			fmt.Fprintf(&b, "Name: %s\n", info.Name)
			if info.Description != "" {
				fmt.Fprintf(&b, "Description: %s\n", info.Description)
			}
			fmt.Fprintf(&b, "Grid: %dx%d, Boxes: %d, Spots: %d\n", info.Width, info.Height, info.Boxes, info.Spots)

			res, err := solveLevel(def, maxStates)
			if err != nil {
				fmt.Fprintf(&b, "Solution: %v\n", err)
			} else {
				fmt.Fprintf(&b, "Solution: %d moves (%d positions explored)\n", len(res.Moves), res.Explored)
			}
			reports[i] = b.String()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.Root().Writer
	for _, r := range reports {
		fmt.Fprintln(out, r)
	}
	return nil
}

func runSolve(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: levels solve <level>")
	}

	levels, err := openLevels(cmd)
	if err != nil {
		return err
	}
	def, err := levels.LoadLevel(name)
	if err != nil {
		return err
	}

	res, err := solveLevel(def, int(cmd.Int("max-states")))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return printSolution(cmd.Root().Writer, def, res)
}

// printSolution replays the moves on a fresh engine and prints the final board.
func printSolution(out io.Writer, def *level.Definition, res *solver.Result) error {
	e, err := engine.NewEngine(def)
	if err != nil {
		return err
	}

	dirs := make([]string, len(res.Moves))
	for i, d := range res.Moves {
		dirs[i] = string(d)
		e.Move(d)
	}

	fmt.Fprintf(out, "%s: %d moves (%d positions explored)\n", def.Name, len(res.Moves), res.Explored)
	fmt.Fprintln(out, strings.Join(dirs, " "))

	snap := e.Snapshot()
	fmt.Fprintf(out, "\n%s\n", snap.Board())
	if !snap.Won() {
		return fmt.Errorf("replayed solution did not solve %s", def.Name)
	}
	return nil
}
