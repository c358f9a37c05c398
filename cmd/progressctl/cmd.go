package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"quizprogress/internal/cache"
	"strconv"
	"text/tabwriter"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	store cache.Store
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  list  -user USER_ID               - list cached in-progress attempts of a user")
	fmt.Fprintln(cli.out, "  clear -user USER_ID -quiz QUIZ_ID - forget the cached attempt of a quiz")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listCmd.SetOutput(cli.out)
	listUser := listCmd.String("user", "", "The LMS user id.")

	clearCmd := flag.NewFlagSet("clear", flag.ContinueOnError)
	clearCmd.SetOutput(cli.out)
	clearUser := clearCmd.String("user", "", "The LMS user id.")
	clearQuiz := clearCmd.Int64("quiz", 0, "The quiz id.")

	switch args[1] {
	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *listUser == "" {
			listCmd.Usage()
			return errHelp
		}
		return cli.list(ctx, *listUser)
	case "clear":
		if err := clearCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *clearUser == "" || *clearQuiz <= 0 {
			clearCmd.Usage()
			return errHelp
		}
		return cli.clear(ctx, *clearUser, *clearQuiz)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) list(ctx context.Context, userID string) error {
	records, err := cache.NewProgressCache(cache.Namespace(cli.store, userID)).List(ctx)
	if err != nil {
		return fmt.Errorf("list progress of %s: %w", userID, err)
	}
	if len(records) == 0 {
		fmt.Fprintf(cli.out, "no cached attempts for user %s\n", userID)
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUIZ\tATTEMPT\tASSESSMENT\tSTATUS\tSTARTED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", r.QuizID, r.AttemptID, optionalID(r.AssessmentID), r.Status, r.StartedAt)
	}
	return tw.Flush()
}

func (cli *commandLine) clear(ctx context.Context, userID string, quizID int64) error {
	progress := cache.NewProgressCache(cache.Namespace(cli.store, userID))

	record, err := progress.Get(ctx, quizID)
	if err != nil && !errors.Is(err, cache.ErrCorruptRecord) {
		return fmt.Errorf("read progress of quiz %d: %w", quizID, err)
	}
	if err := progress.Delete(ctx, quizID); err != nil {
		return fmt.Errorf("clear progress of quiz %d: %w", quizID, err)
	}

	switch {
	case record != nil:
		fmt.Fprintf(cli.out, "cleared attempt %d of quiz %d\n", record.AttemptID, quizID)
	case err != nil:
		fmt.Fprintf(cli.out, "cleared corrupt record of quiz %d\n", quizID)
	default:
		fmt.Fprintf(cli.out, "nothing cached for quiz %d\n", quizID)
	}
	return nil
}

func optionalID(id int64) string {
	if id <= 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}
