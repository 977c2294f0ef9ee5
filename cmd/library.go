package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/ripple/internal/db"
	"github.com/llehouerou/ripple/internal/ingest"
	"github.com/llehouerou/ripple/internal/library"
	"github.com/llehouerou/ripple/internal/track"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <files...>",
	Short: "Add audio files to the library",
	Long: `Add audio files to the library. Lyrics files (.lrc, .txt) named like an
audio file in the same folder are attached to it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *library.SQLiteStore) error {
			return ingestFiles(cmd.Context(), cmd.OutOrStdout(), store, args, time.Now())
		})
	},
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect and edit the library",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library tracks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(store *library.SQLiteStore) error {
			return listLibrary(cmd.Context(), cmd.OutOrStdout(), store)
		})
	},
}

var libraryRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a track from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid track id %q", args[0])
		}
		return withStore(func(store *library.SQLiteStore) error {
			if _, err := store.Get(cmd.Context(), id); err != nil {
				return err
			}
			return store.Delete(cmd.Context(), id)
		})
	},
}

var libraryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every track from the library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(store *library.SQLiteStore) error {
			return store.Clear(cmd.Context())
		})
	},
}

func init() {
	libraryCmd.AddCommand(libraryListCmd, libraryRmCmd, libraryClearCmd)
	rootCmd.AddCommand(ingestCmd, libraryCmd)
}

func withStore(fn func(store *library.SQLiteStore) error) error {
	conn, err := db.Open(cfg.Library.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(library.NewSQLiteStore(conn))
}

// trackSaver is the part of the library store ingestion writes to.
type trackSaver interface {
	Save(ctx context.Context, t track.Track) error
}

func ingestFiles(ctx context.Context, out io.Writer, store trackSaver, paths []string, now time.Time) error {
	var withCompanions []string
	for _, p := range paths {
		withCompanions = append(withCompanions, p)
		if track.IsAudioFile(p) {
			withCompanions = append(withCompanions, ingest.Companions(p)...)
		}
	}
	files, err := ingest.FromPaths(dedupe(withCompanions))
	if err != nil {
		return err
	}

	tracks := ingest.Ingest(files, now)
	if len(tracks) == 0 {
		return fmt.Errorf("no audio files among %d inputs", len(paths))
	}
	var size uint64
	for _, t := range tracks {
		t.Transient = false
		t.AddedAt = now
		if err := store.Save(ctx, t); err != nil {
			return fmt.Errorf("save %s: %w", t.Title, err)
		}
		size += uint64(len(t.Payload.Data))
	}
	fmt.Fprintf(out, "added %d tracks (%s)\n", len(tracks), humanize.IBytes(size))
	return nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// trackLister is the part of the library store listing reads from.
type trackLister interface {
	GetAll(ctx context.Context) ([]track.Track, error)
}

func listLibrary(ctx context.Context, out io.Writer, store trackLister) error {
	tracks, err := store.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Fprintln(out, "library is empty")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tARTIST\tFORMAT\tADDED")
	for _, t := range tracks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			strconv.FormatFloat(t.ID, 'f', -1, 64), t.Title, t.Artist, t.Format, humanize.Time(t.AddedAt))
	}
	return w.Flush()
}

