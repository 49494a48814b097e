package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignatij/gostage/internal/http"
	"github.com/ignatij/gostage/internal/log"
	internal_storage "github.com/ignatij/gostage/internal/storage"
	"github.com/ignatij/gostage/pkg/engine"
	"github.com/ignatij/gostage/pkg/models"
	"github.com/ignatij/gostage/pkg/pool"
	"github.com/ignatij/gostage/pkg/records"
	"github.com/ignatij/gostage/pkg/transform"
)

func SetupCLI(rootCmd *cobra.Command) {
	runCmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Run the word-count demo pipeline over the given text files",
		Run: func(cmd *cobra.Command, args []string) {
			workers, _ := cmd.Flags().GetInt("workers")
			recordLog, _ := cmd.Flags().GetString("record-log")
			filterName, _ := cmd.Flags().GetString("filter")
			minBytes, _ := cmd.Flags().GetInt("min-bytes")
			transformerName, _ := cmd.Flags().GetString("transformer")
			stagingDir, _ := cmd.Flags().GetString("staging-dir")
			stagingDB, _ := cmd.Flags().GetString("staging-db")

			transformer := buildTransformer(filterName, minBytes, transformerName, stagingDir, stagingDB)
			recorder := buildRecorder(recordLog)

			ctx := context.Background()
			eng := engine.New(
				pool.NewLocal(ctx, workers, log.GetLogger()),
				engine.WithTransformer(transformer),
				engine.WithRecorder(recorder),
				engine.WithLogger(log.GetLogger()),
			)
			defer eng.Shutdown(true, false)

			texts := loadInputs(args)
			counts := runWordCount(ctx, eng, texts)
			for word, n := range counts {
				fmt.Fprintf(os.Stdout, "%s: %d\n", word, n)
			}
		},
	}
	runCmd.Flags().Int("workers", 0, "Worker goroutines (0 = one per CPU)")
	runCmd.Flags().String("record-log", "", "Path of the JSON Lines task-record log (empty = no records)")
	runCmd.Flags().String("filter", "all", "Staging filter: all, never or size")
	runCmd.Flags().Int("min-bytes", 100, "Minimum object size for the size filter")
	runCmd.Flags().String("transformer", "none", "Staging transformer: none, file or sqlite")
	runCmd.Flags().String("staging-dir", ".gostage-staging", "Directory for the file transformer")
	runCmd.Flags().String("staging-db", ".gostage-staging.db", "Database path for the sqlite transformer")

	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "List task records from a JSON Lines log or the database",
		Run: func(cmd *cobra.Command, args []string) {
			recordLog, _ := cmd.Flags().GetString("log")
			dbConnStr, _ := cmd.Flags().GetString("db")
			switch {
			case recordLog != "":
				recs, err := records.ReadJSONL(recordLog)
				if err != nil {
					log.GetLogger().Errorf("Failed to read record log: %v", err)
					os.Exit(1)
				}
				printRecords(recs)
			case dbConnStr != "":
				store := initStore(dbConnStr)
				defer store.Close()
				recs, err := store.List(0)
				if err != nil {
					log.GetLogger().Errorf("Failed to list task records: %v", err)
					os.Exit(1)
				}
				printRecords(recs)
			default:
				fmt.Fprintln(os.Stderr, "Error: either --log or --db is required")
				os.Exit(1)
			}
		},
	}
	recordsCmd.Flags().String("log", "", "Path of a JSON Lines task-record log")
	recordsCmd.Flags().String("db", "", "Database connection string")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve task records over HTTP",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, _ := cmd.Flags().GetString("db")
			port, _ := cmd.Flags().GetString("port")
			if dbConnStr == "" {
				fmt.Fprintln(os.Stderr, "Error: --db is required")
				os.Exit(1)
			}
			store := initStore(dbConnStr)
			defer store.Close()
			if err := http.StartServer(port, store); err != nil {
				log.GetLogger().Errorf("Server failed: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("db", "", "Database connection string")
	serveCmd.Flags().String("port", "8080", "Port to listen on")

	rootCmd.AddCommand(runCmd, recordsCmd, serveCmd)
}

func buildTransformer(filterName string, minBytes int, transformerName, stagingDir, stagingDB string) *transform.TaskTransformer {
	var filter transform.Filter
	switch filterName {
	case "all", "":
		filter = transform.All()
	case "never":
		filter = transform.Never()
	case "size":
		filter = transform.MinSize(minBytes)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown filter %q (want all, never or size)\n", filterName)
		os.Exit(1)
	}

	var transformer transform.Transformer
	var err error
	switch transformerName {
	case "none", "":
		transformer = nil
	case "file":
		transformer, err = transform.NewFileTransformer(stagingDir)
	case "sqlite":
		transformer, err = transform.NewSQLiteTransformer(stagingDB)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown transformer %q (want none, file or sqlite)\n", transformerName)
		os.Exit(1)
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize transformer: %v", err)
		os.Exit(1)
	}
	transform.Register(map[string]int{})
	return transform.NewTaskTransformer(filter, transformer)
}

func buildRecorder(recordLog string) records.Logger {
	if recordLog == "" {
		return records.Nop{}
	}
	recorder, err := records.NewJSONL(recordLog)
	if err != nil {
		log.GetLogger().Errorf("Failed to open record log: %v", err)
		os.Exit(1)
	}
	return recorder
}

func loadInputs(paths []string) []string {
	if len(paths) == 0 {
		return []string{
			"the quick brown fox jumps over the lazy dog",
			"the dog barks and the fox runs",
		}
	}
	texts := make([]string, len(paths))
	for i, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			log.GetLogger().Errorf("Failed to read input %s: %v", path, err)
			os.Exit(1)
		}
		texts[i] = string(b)
	}
	return texts
}

// runWordCount submits one count task per text and a merge task depending
// on all of them.
func runWordCount(ctx context.Context, eng *engine.Engine, texts []string) map[string]int {
	countWords := func(ctx context.Context, args ...any) (any, error) {
		counts := make(map[string]int)
		for _, word := range strings.Fields(args[0].(string)) {
			counts[strings.ToLower(strings.Trim(word, ".,!?;:"))]++
		}
		return counts, nil
	}
	mergeCounts := func(ctx context.Context, args ...any) (any, error) {
		merged := make(map[string]int)
		for _, arg := range args {
			for word, n := range arg.(map[string]int) {
				merged[word] += n
			}
		}
		return merged, nil
	}

	var mergeArgs []any
	for _, text := range texts {
		mergeArgs = append(mergeArgs, eng.Submit(countWords, text))
	}
	result, err := eng.Submit(mergeCounts, mergeArgs...).Result(ctx)
	if err != nil {
		log.GetLogger().Errorf("Word-count pipeline failed: %v", err)
		os.Exit(1)
	}
	return result.(map[string]int)
}

func printRecords(recs []models.TaskRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(os.Stdout, "No task records found.")
		return
	}
	for _, rec := range recs {
		status := "PENDING"
		if rec.Success != nil {
			if *rec.Success {
				status = "SUCCESS"
			} else {
				status = "FAILED"
			}
		}
		fmt.Fprintf(os.Stdout, "- %s %s %s submitted=%s parents=%v\n",
			rec.TaskID, rec.FunctionName, status,
			rec.SubmitTime.Format(time.RFC3339), rec.ParentTaskIDs)
	}
}

func initStore(dbConnStr string) *internal_storage.PostgresStore {
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}
