package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"double/internal/batch"
	"double/internal/chat"
	"double/internal/config"
	"double/internal/extract"
	"double/internal/grading"
	"double/internal/llm"
	"double/internal/session"
	"double/internal/student"
	"double/internal/template"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func dataDir() string {
	return viper.GetString("data-dir")
}

func newGateway() (*llm.Client, error) {
	cfg, err := config.Load(dataDir())
	if err != nil {
		return nil, err
	}
	return llm.New(cfg, viper.GetString("model"))
}

func main() {
	root := &cobra.Command{
		Use:           "double",
		Short:         "Desktop assistant core: AI chat sessions and batch composition grading",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("data-dir", config.DefaultDataDir(), "data directory")
	root.PersistentFlags().StringP("model", "m", "", "model provider (default from config)")
	_ = viper.BindPFlag("data-dir", root.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("model", root.PersistentFlags().Lookup("model"))

	root.AddCommand(
		chatCmd(),
		sessionsCmd(),
		gradeCmd(),
		batchesCmd(),
		studentsCmd(),
		templatesCmd(),
		validateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error: ")+err.Error())
		os.Exit(1)
	}
}

func chatCmd() *cobra.Command {
	var sessionID string
	var attachPaths []string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one chat message, streaming the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewStore(dataDir())
			if err != nil {
				return err
			}
			gateway, err := newGateway()
			if err != nil {
				return err
			}

			if sessionID == "" {
				meta, err := store.Create("新会话", gateway.Provider())
				if err != nil {
					return err
				}
				sessionID = meta.ID
				if isTTY() {
					fmt.Println(gray("session " + sessionID))
				}
			}

			var attachments []session.Attachment
			for _, p := range attachPaths {
				attachments = append(attachments, session.Attachment{
					Name: filepath.Base(p),
					Path: p,
				})
			}

			svc := chat.NewService(store, gateway)
			_, err = svc.Send(cmd.Context(), sessionID, args[0], attachments, func(delta, _ string) {
				fmt.Print(delta)
			})
			fmt.Println()
			return err
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (a new session is created when omitted)")
	cmd.Flags().StringArrayVar(&attachPaths, "attach", nil, "attach a file reference to the message")
	return cmd
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently created first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewStore(dataDir())
			if err != nil {
				return err
			}
			sessions, err := store.All()
			if err != nil {
				return err
			}
			for _, meta := range sessions {
				fmt.Printf("%s  %s  %s\n",
					cyan(meta.ID),
					bold(meta.Title),
					gray(fmt.Sprintf("%d messages, updated %s", meta.MessageCount, meta.UpdatedAt.Format("2006-01-02 15:04"))))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "new [title]",
		Short: "Create a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := "新会话"
			if len(args) > 0 {
				title = args[0]
			}
			store, err := session.NewStore(dataDir())
			if err != nil {
				return err
			}
			cfg, err := config.Load(dataDir())
			if err != nil {
				return err
			}
			meta, err := store.Create(title, cfg.DefaultModel)
			if err != nil {
				return err
			}
			fmt.Println(green(meta.ID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewStore(dataDir())
			if err != nil {
				return err
			}
			return store.Rename(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewStore(dataDir())
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewStore(dataDir())
			if err != nil {
				return err
			}
			sess, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if sess == nil {
				fmt.Println(yellow("no such session"))
				return nil
			}
			fmt.Printf("%s (%d messages)\n", bold(sess.Title), sess.MessageCount)
			for _, msg := range sess.Messages {
				fmt.Printf("%s %s\n", cyan("["+msg.Role+"]"), msg.Content)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search message contents across all sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewStore(dataDir())
			if err != nil {
				return err
			}
			results, err := store.Search(args[0])
			if err != nil {
				return err
			}
			for _, r := range results {
				snippet := r.Content
				if len(snippet) > 120 {
					snippet = snippet[:120] + "…"
				}
				fmt.Printf("%s %s %s\n", cyan(r.SessionID), gray(r.Role), snippet)
			}
			fmt.Println(gray(fmt.Sprintf("%d matches", len(results))))
			return nil
		},
	})

	return cmd
}

func gradeCmd() *cobra.Command {
	var studentID, gradeLevel, style string
	var maxScore int

	cmd := &cobra.Command{
		Use:   "grade <file>...",
		Short: "Grade compositions as one batch task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gateway, err := newGateway()
			if err != nil {
				return err
			}
			batchStore, err := batch.NewStore(dataDir())
			if err != nil {
				return err
			}
			studentStore, err := student.NewStore(dataDir())
			if err != nil {
				return err
			}

			var compositions []batch.Composition
			for _, path := range args {
				compositions = append(compositions, batch.Composition{
					Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
					Text:  extract.Text(path),
				})
			}

			task, err := batchStore.Create(studentID, compositions)
			if err != nil {
				return err
			}
			fmt.Println(gray("batch " + task.ID))

			grader := grading.NewGrader(gateway)
			runner := batch.NewRunner(batchStore, grader.Grade, studentStore)

			opts := grading.Options{Grade: gradeLevel, MaxScore: maxScore, CommentStyle: style}
			task, err = runner.Execute(cmd.Context(), task.ID, opts, func(p batch.Progress) {
				switch p.Status {
				case "failed":
					fmt.Printf("%s %d/%d %s: %s\n", red("✗"), p.Current, p.Total, p.Title, p.Error)
				default:
					fmt.Printf("%s %d/%d %s\n", green("→"), p.Current, p.Total, p.Title)
				}
			})
			if err != nil {
				return err
			}

			printTask(*task)
			return nil
		},
	}

	cmd.Flags().StringVar(&studentID, "student", "", "owning student id")
	cmd.Flags().StringVar(&gradeLevel, "grade", "primary", "grading standard: primary|middle|high")
	cmd.Flags().IntVar(&maxScore, "max-score", 100, "maximum score")
	cmd.Flags().StringVar(&style, "style", "encouraging", "comment style: encouraging|strict|balanced")
	return cmd
}

func printTask(task batch.Task) {
	fmt.Printf("%s: %s (%d completed, %d failed of %d)\n",
		bold(task.ID), string(task.Status), task.Completed, task.Failed, task.Total)
	for _, item := range task.Items {
		switch item.Status {
		case batch.ItemCompleted:
			score := ""
			if item.Result != nil {
				score = fmt.Sprintf("%.0f/%.0f", item.Result.Evaluation.Score, item.Result.Evaluation.MaxScore)
			}
			fmt.Printf("  %s %s %s\n", green("✓"), item.Title, bold(score))
		case batch.ItemFailed:
			fmt.Printf("  %s %s %s\n", red("✗"), item.Title, gray(item.Error))
		default:
			fmt.Printf("  %s %s\n", gray("·"), item.Title)
		}
	}
}

func batchesCmd() *cobra.Command {
	var studentID string

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List batch grading tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := batch.NewStore(dataDir())
			if err != nil {
				return err
			}
			tasks, err := store.GetAll(studentID)
			if err != nil {
				return err
			}
			for _, task := range tasks {
				printTask(task)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&studentID, "student", "", "filter by student id")
	return cmd
}

func studentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage student profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List students",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := student.NewStore(dataDir())
			if err != nil {
				return err
			}
			students, err := store.All()
			if err != nil {
				return err
			}
			for _, st := range students {
				fmt.Printf("%s  %s  %s\n", cyan(st.ID), bold(st.Name),
					gray(fmt.Sprintf("%d graded, avg %.1f", st.Stats.CompositionCount, st.Stats.AvgScore)))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a student profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := student.NewStore(dataDir())
			if err != nil {
				return err
			}
			st, err := store.Create(student.Student{Name: args[0]})
			if err != nil {
				return err
			}
			fmt.Println(green(st.ID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a student profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := student.NewStore(dataDir())
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})

	return cmd
}

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List comment templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := template.NewStore(dataDir())
			if err != nil {
				return err
			}
			all, err := store.All()
			if err != nil {
				return err
			}
			for grade, list := range all {
				fmt.Println(bold(grade))
				for _, tpl := range list {
					fmt.Printf("  %s %s %s\n", cyan(tpl.ID), tpl.Text, gray(strings.Join(tpl.Tags, ",")))
				}
			}
			return nil
		},
	}
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configured API key with a minimal exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			gateway, err := newGateway()
			if err != nil {
				return err
			}
			ok, detail := gateway.ValidateKey(context.Background())
			if ok {
				fmt.Println(green("✓ ") + gateway.Provider() + " key is valid")
				return nil
			}
			fmt.Println(red("✗ ") + detail)
			os.Exit(1)
			return nil
		},
	}
}
