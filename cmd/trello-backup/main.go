package main

import (
	"fmt"
	"os"

	trellobackup "github.com/backuptools/trello-backup"
	"github.com/backuptools/trello-backup/pkg/trello"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = trello.Version

var (
	dest           string
	incremental    bool
	tokenize       bool
	symlinks       bool
	closedBoards   bool
	archivedLists  bool
	archivedCards  bool
	myBoards       bool
	organizations  bool
	attachmentSize int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trello-backup",
		Short: "Back up Trello boards to a local directory tree",
		Long: "A tool to mirror Trello boards, lists, cards, comments, checklists, " +
			"and attachments onto the local filesystem via the Trello API",
		Run: run,
	}

	rootCmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination folder (default: timestamped folder)")
	rootCmd.Flags().BoolVarP(&incremental, "incremental", "i", false, "Backup incrementally into an existing folder, skipping present attachments")
	rootCmd.Flags().BoolVarP(&tokenize, "tokenize", "t", false, "Name folders and files using the long ID")
	rootCmd.Flags().BoolVarP(&symlinks, "symlinks", "s", false, "Create named symlinks to tokens (on OSes that accept symlinks)")
	rootCmd.Flags().BoolVarP(&closedBoards, "closed-boards", "B", false, "Backup closed boards")
	rootCmd.Flags().BoolVarP(&archivedLists, "archived-lists", "L", false, "Backup archived lists")
	rootCmd.Flags().BoolVarP(&archivedCards, "archived-cards", "C", false, "Backup archived cards")
	rootCmd.Flags().BoolVarP(&myBoards, "my-boards", "m", false, "Backup personal boards")
	rootCmd.Flags().BoolVarP(&organizations, "organizations", "o", false, "Backup organization boards")
	rootCmd.Flags().Int64VarP(&attachmentSize, "attachment-size", "a", trellobackup.DefaultAttachmentSize,
		"Attachment size limit in bytes. Set to -1 to disable the limit")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trello-backup version %s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	cyan.Println("\nTrello Full Backup")
	cyan.Println("==================")
	cyan.Println()

	// Credentials come from the environment, optionally seeded by a local
	// .env file.
	godotenv.Load()
	key := os.Getenv("TRELLO_API_KEY")
	token := os.Getenv("TRELLO_TOKEN")
	if key == "" || token == "" {
		red.Println("Error: TRELLO_API_KEY and TRELLO_TOKEN must be set")
		os.Exit(1)
	}

	opts := trellobackup.Options{
		APIKey:         key,
		APIToken:       token,
		Dest:           dest,
		Incremental:    incremental,
		Tokenize:       tokenize,
		Symlinks:       symlinks,
		ClosedBoards:   closedBoards,
		ArchivedLists:  archivedLists,
		ArchivedCards:  archivedCards,
		MyBoards:       myBoards,
		Organizations:  organizations,
		AttachmentSize: attachmentSize,
		Logger:         &cliLogger{},
	}

	result, err := trellobackup.Run(opts)
	if err != nil {
		if result != nil && result.Failed > 0 {
			red.Printf("\n%d of %d boards failed\n", result.Failed, result.Boards)
		}
		red.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	green.Printf("\nBacked up %d boards to %s\n", result.Boards, result.Dest)
	green.Println("Trello Full Backup Completed!")
}

// cliLogger implements trellobackup.Logger with colored terminal output.
type cliLogger struct{}

func (l *cliLogger) Infof(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	color.New(color.FgYellow).Printf("! "+format+"\n", args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	color.New(color.FgRed).Printf("x "+format+"\n", args...)
}
