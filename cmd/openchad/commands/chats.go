package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openchad-ai/openchad/internal/chat"
	"github.com/openchad-ai/openchad/internal/config"
	"github.com/openchad-ai/openchad/internal/storage"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listChats()
	},
}

var chatsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		conv, err := store.Create(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", conv.ID, conv.Title)
		return nil
	},
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		return store.Delete(ctx, args[0])
	},
}

func init() {
	chatsCmd.AddCommand(chatsNewCmd)
	chatsCmd.AddCommand(chatsDeleteCmd)
}

// openStore loads the conversation store from the configured data directory.
func openStore(ctx context.Context) (*chat.Store, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	store := chat.NewStore(storage.New(cfg.DataDir))
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func listChats() error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	active := store.ActiveID()
	for _, conv := range store.Conversations() {
		marker := " "
		if conv.ID == active {
			marker = "*"
		}
		created := time.UnixMilli(conv.CreatedAt).Format("2006-01-02 15:04")
		fmt.Printf("%s %s  %s  (%d mensajes)  %s\n", marker, conv.ID, created, len(conv.Messages), conv.Title)
	}
	return nil
}
