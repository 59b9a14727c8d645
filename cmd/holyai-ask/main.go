// Command holyai-ask is a terminal client for a running Holy AI server.
// Each line read from stdin is asked as a question; the conversation id
// returned by the server is carried into the next question.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/speech"
)

var (
	serverURL  = flag.String("server", "http://localhost:8080", "Holy AI server URL")
	userID     = flag.String("user", "", "User id (random when empty)")
	collection = flag.String("collection", "", "Vector collection (server default when empty)")
	speak      = flag.Bool("speak", false, "Speak answers through mpg123")
	verbose    = flag.Bool("v", false, "Show retrieved contexts")
)

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if *userID == "" {
		*userID = uuid.New().String()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newClient(*serverURL, *userID, *collection)
	if err := run(ctx, c, os.Stdin, os.Stdout, logger); err != nil {
		logger.Fatal("Session ended", zap.Error(err))
	}
}

func run(ctx context.Context, c *client, in io.Reader, out io.Writer, logger *zap.Logger) error {
	scanner := bufio.NewScanner(in)
	var playing <-chan error

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			fmt.Fprint(out, "> ")
			continue
		}

		res, err := c.ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("Failed to get answer", zap.Error(err))
			fmt.Fprint(out, "> ")
			continue
		}

		if *verbose {
			for i, ctxItem := range res.Contexts {
				fmt.Fprintf(out, "  [ctx %d | score=%.3f] %s\n", i+1, ctxItem.Score, firstLine(ctxItem.Text))
			}
		}
		fmt.Fprintf(out, "%s\n\n", res.Answer)

		if *speak {
			if playing != nil {
				<-playing
			}
			audio, err := c.synthesize(ctx, res.Answer)
			if err != nil {
				logger.Warn("Failed to synthesize answer", zap.Error(err))
			} else {
				playing = speech.Play(ctx, speech.DefaultPlayer, audio)
			}
		}

		fmt.Fprint(out, "> ")
	}

	if playing != nil {
		if err := <-playing; err != nil {
			logger.Warn("Playback failed", zap.Error(err))
		}
	}
	return scanner.Err()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
