package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ferreirogomes/harberger/calldata"
	"github.com/ferreirogomes/harberger/fixedpoint"

	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Codifica o payload de uma compra ou recarga",
	}
	cmd.AddCommand(newEncodeBuyCmd(), newEncodeCreditCmd())
	return cmd
}

func newEncodeBuyCmd() *cobra.Command {
	var (
		id            uint64
		price, credit string
		ownerURI      string
	)
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Payload de compra: id, novo preço, saldo inicial e URI do dono",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := fixedpoint.Parse(price)
			if err != nil {
				return fmt.Errorf("falha ao ler --price: %w", err)
			}
			c, err := fixedpoint.Parse(credit)
			if err != nil {
				return fmt.Errorf("falha ao ler --credit: %w", err)
			}
			data := calldata.EncodeBuy(calldata.Buy{AssetID: id, Price: p, Credit: c, OwnerURI: ownerURI})
			fmt.Fprintln(cmd.OutOrStdout(), calldata.EncodeHex(data))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "ID do ativo")
	cmd.Flags().StringVar(&price, "price", "", "novo preço, em unidades inteiras (\"12.5\")")
	cmd.Flags().StringVar(&credit, "credit", "", "saldo inicial, em unidades inteiras")
	cmd.Flags().StringVar(&ownerURI, "owner-uri", "", "URI do novo dono")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("credit")
	return cmd
}

func newEncodeCreditCmd() *cobra.Command {
	var id uint64
	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Payload de recarga de saldo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := calldata.EncodeCredit(calldata.Credit{AssetID: id})
			fmt.Fprintln(cmd.OutOrStdout(), calldata.EncodeHex(data))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "ID do ativo")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <0x...>",
		Short: "Decodifica um payload e imprime como JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := calldata.DecodeHex(args[0])
			if err != nil {
				return fmt.Errorf("falha ao decodificar payload: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Action  string           `json:"action"`
				Payload calldata.Payload `json:"payload"`
			}{payload.Action().String(), payload})
		},
	}
}
