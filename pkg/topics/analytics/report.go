package analytics

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/comrados/crawlergram/pkg/topics/inference"
)

const (
	topicStart = "------------------------topic----------------------------"
	topicEnd   = "------------------------topic end------------------------"
	reportEnd  = "----------------------------------------------------------"
)

// WriteStats renders corpus statistics.
func WriteStats(w io.Writer, s Stats) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "Number of documents: %d\n", s.Documents)
	fmt.Fprintf(bw, "Average valid word length L: %.2f\n", s.AvgWordLength)
	fmt.Fprintf(bw, "Valid tokens per document: %.2f\n", s.TokensPerDoc)
	fmt.Fprintf(bw, "Number of valid unique words: %d\n", s.UniqueWords)
	if s.Stems > 0 {
		fmt.Fprintf(bw, "Number of stems: %d\n", s.Stems)
	}
	fmt.Fprintf(bw, "Ratio tokens_in_doc/unique_words : %.2f %%\n", s.Ratio)
	if len(s.TopTerms) > 0 {
		fmt.Fprint(bw, "Most frequent words:")
		for _, t := range s.TopTerms {
			fmt.Fprintf(bw, " %s(%d)", t.Word, t.DF)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// SortTopic returns a topic's words by descending weight. Equal weights
// keep their incoming order.
func SortTopic(topic []inference.WordWeight) []inference.WordWeight {
	out := append([]inference.WordWeight(nil), topic...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// WriteTopics renders an engine result: the hyperparameter header, then one
// delimited block per topic with "word weight" lines.
func WriteTopics(w io.Writer, res inference.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw)
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "%s %s\n", res.Engine, res.Params)
	for _, topic := range res.Topics {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, topicStart)
		for _, ww := range SortTopic(topic) {
			fmt.Fprintf(bw, "%s %g\n", ww.Word, ww.Weight)
		}
		fmt.Fprintln(bw, topicEnd)
	}
	fmt.Fprintln(bw, reportEnd)
	return bw.Flush()
}
