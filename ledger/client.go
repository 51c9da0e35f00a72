package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client implementa Reader, LogSource e Writer sobre um nó EVM via JSON-RPC.
type Client struct {
	eth      *ethclient.Client
	contract common.Address
	codec    *Codec
	token    abi.ABI
	key      *ecdsa.PrivateKey
	chainID  *big.Int
}

// Dial conecta ao nó (http(s):// ou ws(s)://) e prepara a ABI do contrato.
func Dial(ctx context.Context, rpcURL string, contract common.Address) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao nó %s: %w", rpcURL, err)
	}
	codec, err := NewCodec()
	if err != nil {
		eth.Close()
		return nil, err
	}
	token, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("falha ao carregar ABI do token: %w", err)
	}
	log.Printf("Conectado ao ledger em %s (contrato %s).", rpcURL, contract.Hex())
	return &Client{eth: eth, contract: contract, codec: codec, token: token}, nil
}

// WithSigner habilita Send com a chave privada em hexadecimal.
func (c *Client) WithSigner(hexKey string, chainID int64) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return fmt.Errorf("chave privada inválida: %w", err)
	}
	c.key = key
	c.chainID = big.NewInt(chainID)
	log.Printf("Envio de transações habilitado para %s.", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return nil
}

func (c *Client) Close() { c.eth.Close() }

// Asset lê assets(id) na altura pedida.
func (c *Client) Asset(ctx context.Context, id models.AssetID, block *big.Int) (AssetFields, error) {
	data, err := c.codec.PackAsset(id)
	if err != nil {
		return AssetFields{}, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, block)
	if err != nil {
		return AssetFields{}, fmt.Errorf("falha ao ler assets(%d): %w", id, err)
	}
	return c.codec.UnpackAsset(out)
}

// BalanceExpiration lê balanceExpiration(id) na altura pedida.
func (c *Client) BalanceExpiration(ctx context.Context, id models.AssetID, block *big.Int) (*big.Int, error) {
	data, err := c.codec.PackBalanceExpiration(id)
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("falha ao ler balanceExpiration(%d): %w", id, err)
	}
	return c.codec.UnpackBalanceExpiration(out)
}

// Currency lê o token de pagamento aceito pelo contrato.
func (c *Client) Currency(ctx context.Context) (common.Address, error) {
	data, err := c.codec.PackCurrency()
	if err != nil {
		return common.Address{}, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("falha ao ler currency: %w", err)
	}
	return c.codec.UnpackCurrency(out)
}

func (c *Client) Head(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// Events busca os logs do contrato em [from, to]. Logs marcados como
// removidos (reorganização) são descartados.
func (c *Client) Events(ctx context.Context, from, to uint64) ([]events.Raw, error) {
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contract},
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar logs %d..%d: %w", from, to, err)
	}
	out := make([]events.Raw, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		raw, err := c.codec.DecodeLog(l)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// Send chama send(to, amount, data) no token de pagamento e retorna o hash
// da transação submetida, sem esperar a inclusão.
func (c *Client) Send(ctx context.Context, t models.Transfer) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, ErrNoSigner
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("falha ao preparar assinatura: %w", err)
	}
	opts.Context = ctx

	token := bind.NewBoundContract(t.Token, c.token, c.eth, c.eth, c.eth)
	tx, err := token.Transact(opts, "send", t.To, t.Amount.Big(), []byte(t.Data))
	if err != nil {
		return common.Hash{}, fmt.Errorf("falha ao enviar %s do ativo %d: %w", t.Action, t.AssetID, err)
	}
	log.Printf("Transação %s enviada: %s", t.Action, tx.Hash().Hex())
	return tx.Hash(), nil
}
