package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/pocket"
)

var linkChat int64

// linkCmd prints the WhatsApp link for a chat's stored pocket, for support
// staff following up on a visitor who never pressed send.
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Print the WhatsApp link for a chat's pocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if linkChat == 0 {
			return errors.New("--chat is required")
		}

		cat, err := catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		store, err := openStorage(cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		p := pocket.Open(cmd.Context(), store, strconv.FormatInt(linkChat, 10), cat, destination(cfg), logger)
		link, err := p.Dispatch()
		if err != nil {
			return fmt.Errorf("chat %d: %w", linkChat, err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	linkCmd.Flags().Int64Var(&linkChat, "chat", 0, "Telegram chat id")
}
