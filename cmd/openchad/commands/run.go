package commands

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openchad-ai/openchad/internal/attachment"
	"github.com/openchad-ai/openchad/internal/backend"
	"github.com/openchad-ai/openchad/internal/chat"
	"github.com/openchad-ai/openchad/internal/config"
	"github.com/openchad-ai/openchad/internal/event"
	"github.com/openchad-ai/openchad/internal/logging"
	"github.com/openchad-ai/openchad/internal/storage"
	"github.com/openchad-ai/openchad/pkg/types"
)

var (
	runFiles []string
	runPDF   string
	runDir   string
)

// welcomeSuggestions are shown when the active conversation is still empty.
var welcomeSuggestions = []string{
	"¿Qué es la inteligencia artificial?",
	"Explícame cómo funciona el aprendizaje automático",
	"Dame consejos para programar mejor",
}

var runCmd = &cobra.Command{
	Use:   "run [message...]",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session, or send a single message.

Examples:
  openchad run
  openchad run "Hola, ¿cómo estás?"
  openchad run --file foto.png "Describe esta imagen"
  openchad run --pdf informe.pdf "Resume este documento"`,
	RunE: runChat,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "File(s) to attach to the message")
	runCmd.Flags().StringVar(&runPDF, "pdf", "", "PDF document to attach to the message")
	runCmd.Flags().StringVar(&runDir, "directory", "", "Working directory for config lookup")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(runDir)
	if err != nil {
		return err
	}

	store := chat.NewStore(storage.New(cfg.DataDir))
	if err := store.Load(ctx); err != nil {
		return err
	}

	client := backend.NewClient(cfg.BackendURL)
	controller := chat.NewController(store, client)

	checkBackend(ctx, client)

	atts, doc, err := loadAttachments(ctx, runFiles, runPDF)
	if err != nil {
		return err
	}

	unsub := subscribeRenderer(store)
	defer unsub()

	// One-shot mode: send the message from the command line and exit.
	if message := strings.Join(args, " "); message != "" || len(atts) > 0 || doc != nil {
		return sendAndRender(ctx, controller, message, atts, doc)
	}

	return interactiveLoop(ctx, store, controller)
}

// checkBackend probes the backend and prints a warning when it is
// unreachable or not fully configured. The chat still starts; sends will
// surface their own errors.
func checkBackend(ctx context.Context, client *backend.Client) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := client.Health(probeCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Aviso: no se pudo contactar el backend en %s\n", client.BaseURL())
		return
	}
	if !health.APIKeyConfigured {
		fmt.Fprintln(os.Stderr, "Aviso: el backend no tiene una API key configurada")
	}
}

// loadAttachments encodes --file arguments and reads the --pdf document.
func loadAttachments(ctx context.Context, files []string, pdf string) ([]*types.Attachment, *types.Document, error) {
	encoder := attachment.NewEncoder()

	var pending []attachment.File
	var open []*os.File
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		open = append(open, f)
		pending = append(pending, attachment.File{
			Name:      filepath.Base(path),
			MediaType: mime.TypeByExtension(filepath.Ext(path)),
			Reader:    f,
		})
	}
	atts := encoder.EncodeAll(ctx, pending)

	var doc *types.Document
	if pdf != "" {
		data, err := os.ReadFile(pdf)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", pdf, err)
		}
		doc = &types.Document{Name: filepath.Base(pdf), Data: data}
	}

	return atts, doc, nil
}

// subscribeRenderer prints streamed deltas and settled error messages as
// they land in the store, and traces every bus event at debug level.
func subscribeRenderer(store *chat.Store) func() {
	unsubUpdated := event.Subscribe(event.MessageUpdated, func(ev event.Event) {
		data := ev.Data.(event.MessageUpdatedData)
		if data.Delta != "" {
			fmt.Print(data.Delta)
		}
	})
	unsubCreated := event.Subscribe(event.MessageCreated, func(ev event.Event) {
		data := ev.Data.(event.MessageCreatedData)
		if data.Info.IsError {
			fmt.Printf("\n%s\n", data.Info.Text)
		}
	})
	unsubTrace := event.SubscribeAll(func(ev event.Event) {
		logging.Debug().Str("type", string(ev.Type)).Msg("event")
	})
	return func() {
		unsubUpdated()
		unsubCreated()
		unsubTrace()
	}
}

// sendAndRender sends one message and waits for the exchange to settle.
func sendAndRender(ctx context.Context, controller *chat.Controller, text string, atts []*types.Attachment, doc *types.Document) error {
	if err := controller.Send(ctx, text, atts, doc); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

// interactiveLoop reads messages from stdin until EOF. Ctrl-C cancels the
// active stream instead of quitting; a second Ctrl-C while idle exits.
func interactiveLoop(ctx context.Context, store *chat.Store, controller *chat.Controller) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	go func() {
		for range interrupt {
			if controller.IsStreaming() {
				controller.Cancel()
				continue
			}
			fmt.Println()
			os.Exit(0)
		}
	}()

	active := store.Active()
	fmt.Printf("Chat con OpenChad - %s\n", active.Title)
	if len(active.Messages) == 0 {
		fmt.Println("Haz cualquier pregunta y obtén respuestas inteligentes")
		fmt.Println("Sugerencias:")
		for _, s := range welcomeSuggestions {
			fmt.Printf("  - %s\n", s)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/salir" || text == "/exit" {
			break
		}

		if err := controller.Send(ctx, text, nil, nil); err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println()
	}

	return scanner.Err()
}
