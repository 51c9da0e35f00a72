package cli

import (
	"fmt"

	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/tax"

	"github.com/spf13/cobra"
)

func newTaxCmd() *cobra.Command {
	var (
		price, rate string
		days        uint64
	)
	cmd := &cobra.Command{
		Use:   "taxdue",
		Short: "Calcula o imposto devido por um preço e uma taxa diária",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := fixedpoint.Parse(price)
			if err != nil {
				return fmt.Errorf("falha ao ler --price: %w", err)
			}
			r, err := tax.ParseRate(rate)
			if err != nil {
				return fmt.Errorf("falha ao ler --rate: %w", err)
			}
			if days == 0 {
				return fmt.Errorf("--days deve ser maior que zero")
			}

			daily, err := tax.Daily(p, r)
			if err != nil {
				return fmt.Errorf("falha ao calcular imposto diário: %w", err)
			}
			due, err := tax.Due(p, r, days)
			if err != nil {
				return fmt.Errorf("falha ao calcular imposto: %w", err)
			}
			presets, err := tax.Presets(p, r)
			if err != nil {
				return fmt.Errorf("falha ao calcular recargas sugeridas: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "taxa: %s\n", r)
			fmt.Fprintf(out, "diário: %s\n", daily.Text())
			fmt.Fprintf(out, "%d dias: %s\n", days, due.Text())
			for _, pr := range presets {
				fmt.Fprintf(out, "sugestão %d dias: %s\n", pr.Days, pr.Amount.Text())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "preço do ativo, em unidades inteiras")
	cmd.Flags().StringVar(&rate, "rate", "", "taxa diária em porcentagem (\"1\" = 1% ao dia)")
	cmd.Flags().Uint64Var(&days, "days", 1, "número de dias")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("rate")
	return cmd
}
