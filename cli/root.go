// Package cli reúne os comandos do binário harberger.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// NewRootCmd monta a árvore de comandos. Cada chamada devolve uma árvore nova,
// com flags próprias.
func NewRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "harberger",
		Short: "Réplica local de um registro de ativos sob imposto Harberger",
		Long: `harberger acompanha os eventos do contrato de registro, mantém uma
réplica local dos ativos e expõe uma API HTTP para consulta, cálculo de
imposto e preparação das transferências de compra e recarga.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "conf", "", "caminho do arquivo de configuração")

	root.AddCommand(
		newServeCmd(&configFile),
		newEncodeCmd(),
		newDecodeCmd(),
		newTaxCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute roda o comando raiz. É chamado por main.main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		os.Exit(1)
	}
}
