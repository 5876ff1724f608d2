package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "mediafetch",
		Short: "Media Fetch CLI - Retrieve media from YouTube, Instagram, TikTok and more",
		Long: `A command-line interface for the media fetch server. It retrieves videos,
images, animations and track metadata from YouTube, Instagram, TikTok,
Freepik, Dribbble, Spotify and LottieFiles.`,
	}
)

// fetchTimeout bounds a single CLI fetch; yt-dlp downloads can be slow
const fetchTimeout = 10 * time.Minute

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(platformsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Fetch the media behind a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		output, _ := cmd.Flags().GetString("output")
		igUser, _ := cmd.Flags().GetString("instagram-username")
		igPass, _ := cmd.Flags().GetString("instagram-password")

		payload := map[string]any{"url": args[0]}
		if igUser != "" {
			payload["credentials"] = domain.Credentials{
				Instagram: &domain.InstagramCredentials{Username: igUser, Password: igPass},
			}
		}

		data, _ := json.Marshal(payload)
		client := &http.Client{Timeout: fetchTimeout}
		resp, err := client.Post(serverURL+"/api/v1/fetch", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(body))
			os.Exit(1)
		}

		path, err := saveAsset(resp.Header, body, output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if path == "" {
			return
		}
		fmt.Printf("Saved %s (%d bytes)\n", path, len(body))
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [url]",
	Short: "Show which platform a URL belongs to",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		platform := domain.Classify(args[0])
		if platform == domain.PlatformUnsupported {
			fmt.Println("unsupported")
			os.Exit(2)
		}
		fmt.Printf("%s (%s)\n", platform, platform.DisplayName())
	},
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PLATFORM\tNAME\tOUTPUT\tHOSTS")
		for _, p := range domain.Platforms() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", p, p.DisplayName(), p.OutputKind(), p.Hosts())
		}
		w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past fetches",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		platform, _ := cmd.Flags().GetString("platform")
		outcome, _ := cmd.Flags().GetString("outcome")
		limit, _ := cmd.Flags().GetInt("limit")

		query := url.Values{}
		if platform != "" {
			query.Set("platform", platform)
		}
		if outcome != "" {
			query.Set("outcome", outcome)
		}
		query.Set("limit", fmt.Sprint(limit))

		body := getJSON(serverURL + "/api/v1/history?" + query.Encode())
		var records []domain.FetchRecord
		if err := json.Unmarshal(body, &records); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tPLATFORM\tOUTCOME\tDETAIL\tCREATED")
		for _, r := range records {
			detail := r.Filename
			if r.IsFailed() {
				detail = string(r.Category)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(r.ID, 8),
				truncate(r.URL, 40),
				r.Platform,
				r.Outcome,
				detail,
				r.CreatedAt.Format(time.DateTime))
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fetch statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		body := getJSON(serverURL + "/api/v1/history/stats")

		var stats domain.FetchStats
		if err := json.Unmarshal(body, &stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Fetch Statistics:")
		fmt.Printf("  Total:     %d\n", stats.Total)
		fmt.Printf("  Succeeded: %d\n", stats.Succeeded)
		fmt.Printf("  Failed:    %d\n", stats.Failed)
		for _, p := range domain.Platforms() {
			if n := stats.ByPlatform[p]; n > 0 {
				fmt.Printf("  %-10s %d\n", p.DisplayName()+":", n)
			}
		}
	},
}

// getJSON performs a GET and exits on any failure
func getJSON(endpoint string) []byte {
	resp, err := http.Get(endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(body))
		os.Exit(1)
	}
	return body
}

func init() {
	fetchCmd.Flags().StringP("output", "o", "", "Output path (\"-\" for stdout)")
	fetchCmd.Flags().String("instagram-username", "", "Instagram username for private posts")
	fetchCmd.Flags().String("instagram-password", "", "Instagram password for private posts")
	historyCmd.Flags().StringP("platform", "p", "", "Filter by platform")
	historyCmd.Flags().StringP("outcome", "s", "", "Filter by outcome (succeeded, failed)")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of records")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
