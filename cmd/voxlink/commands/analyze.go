package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/analyze"
	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/source"
)

var (
	analyzeFile      string
	analyzeSummarize bool
	analyzeTopics    bool
	analyzeIntents   bool
	analyzeSentiment bool
	analyzeLanguage  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text|url|-]",
	Short: "Summarize and classify text",
	Long: `Run text intelligence over text given as arguments, read from a file
or stdin, or hosted at a URL. Summarization is on unless another feature is
selected.

Examples:
  voxlink analyze --file transcript.txt --topics --sentiment
  voxlink analyze https://example.com/article.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var src source.Source
		switch {
		case analyzeFile != "":
			data, err := os.ReadFile(analyzeFile)
			if err != nil {
				return err
			}
			src = source.FromBuffer(data)
		case len(args) == 1 && isURL(args[0]):
			src = source.FromURL(args[0])
		default:
			text, err := textArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if text == "" {
				return errors.New("no text to analyze")
			}
			src = source.FromText(text)
		}
		return current.runAnalyze(cmd.Context(), src)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "read text from this file")
	analyzeCmd.Flags().BoolVar(&analyzeSummarize, "summarize", false, "summarize the text")
	analyzeCmd.Flags().BoolVar(&analyzeTopics, "topics", false, "detect topics")
	analyzeCmd.Flags().BoolVar(&analyzeIntents, "intents", false, "detect intents")
	analyzeCmd.Flags().BoolVar(&analyzeSentiment, "sentiment", false, "score sentiment")
	analyzeCmd.Flags().StringVar(&analyzeLanguage, "language", "en", "text language")
}

func (a *app) runAnalyze(ctx context.Context, src source.Source) error {
	opts, err := a.clientOptions()
	if err != nil {
		return err
	}
	ac, err := analyze.NewClient(opts)
	if err != nil {
		return err
	}

	params := analyze.Options{Language: analyzeLanguage}
	if !analyzeTopics && !analyzeIntents && !analyzeSentiment {
		analyzeSummarize = true
	}
	if analyzeSummarize {
		params.Summarize = client.BoolPtr(true)
	}
	if analyzeTopics {
		params.Topics = client.BoolPtr(true)
	}
	if analyzeIntents {
		params.Intents = client.BoolPtr(true)
	}
	if analyzeSentiment {
		params.Sentiment = client.BoolPtr(true)
	}

	var resp *analyze.Response
	switch src.Kind {
	case source.KindURL:
		resp, err = ac.AnalyzeURL(ctx, src, params)
	case source.KindText:
		resp, err = ac.AnalyzeText(ctx, src, params)
	default:
		resp, err = ac.AnalyzeBuffer(ctx, src, params)
	}
	if err != nil {
		return err
	}
	a.logger.Info("analysis complete", zap.String("request_id", resp.Metadata.RequestID))

	if outputJSON {
		return printJSON(resp)
	}
	printAnalysis(resp)
	return nil
}

func printAnalysis(resp *analyze.Response) {
	if s := resp.Summary(); s != "" {
		fmt.Printf("Summary:\n  %s\n", s)
	}
	if t := resp.Results.Topics; t != nil {
		fmt.Println("Topics:")
		for _, seg := range t.Segments {
			for _, topic := range seg.Topics {
				fmt.Printf("  %-30s %.2f\n", topic.Topic, topic.ConfidenceScore)
			}
		}
	}
	if in := resp.Results.Intents; in != nil {
		fmt.Println("Intents:")
		for _, seg := range in.Segments {
			for _, intent := range seg.Intents {
				fmt.Printf("  %-30s %.2f\n", intent.Intent, intent.ConfidenceScore)
			}
		}
	}
	if s := resp.Results.Sentiments; s != nil {
		fmt.Printf("Sentiment: %s (%.2f)\n", s.Average.Sentiment, s.Average.SentimentScore)
	}
}
