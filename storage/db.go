package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/models"
	"github.com/ferreirogomes/harberger/tax"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Drivers suportados e o dialeto correspondente do sql-migrate.
var dialects = map[string]string{
	"postgres": "postgres",
	"sqlite":   "sqlite3",
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB representa a conexão com o banco que guarda o snapshot da réplica.
type DB struct {
	*sqlx.DB
}

// NewDB conecta-se ao banco (postgres ou sqlite) e executa as migrações.
func NewDB(driver, dataSourceName string) (*DB, error) {
	dialect, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("driver de banco não suportado: %q", driver)
	}
	db, err := sqlx.Connect(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}
	if driver == "sqlite" {
		// um único escritor; evita SQLITE_BUSY e mantém bancos :memory: num só handle
		db.SetMaxOpenConns(1)
	}
	log.Printf("Conexão com %s estabelecida com sucesso.", driver)

	if err := runMigrations(db.DB, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao executar migrações: %w", err)
	}
	return &DB{db}, nil
}

// runMigrations executa as migrações embutidas usando sql-migrate.
func runMigrations(db *sql.DB, dialect string) error {
	migrations := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}

	n, err := migrate.Exec(db, dialect, migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}
	if n > 0 {
		log.Printf("Aplicadas %d migrações ao banco de dados.", n)
	} else {
		log.Println("Nenhuma migração nova para aplicar.")
	}
	return nil
}

type assetRow struct {
	ID              string `db:"id"`
	Seq             int    `db:"seq"`
	Owner           string `db:"owner"`
	Price           string `db:"price"`
	Tax             string `db:"tax"`
	LastPaymentDate int64  `db:"last_payment_date"`
	Balance         string `db:"balance"`
	Expiration      int64  `db:"expiration"`
	OwnerURI        string `db:"owner_uri"`
	MetaURI         string `db:"meta_uri"`
	Terminal        bool   `db:"terminal"`
}

// Checkpoint registra um snapshot gravado.
type Checkpoint struct {
	ID          string `db:"id"`
	BlockNumber uint64 `db:"block_number"`
	LogIndex    uint64 `db:"log_index"`
	HasCursor   bool   `db:"has_cursor"`
	SyncedBlock uint64 `db:"synced_block"`
	Account     string `db:"account"`
	AssetCount  int    `db:"asset_count"`
	CreatedAt   int64  `db:"created_at"`
}

func toRow(seq int, a models.Asset) assetRow {
	var exp int64
	if !a.Expiration.IsZero() {
		exp = a.Expiration.Unix()
	}
	return assetRow{
		ID:              strconv.FormatUint(uint64(a.ID), 10),
		Seq:             seq,
		Owner:           a.Owner.Hex(),
		Price:           a.Price.String(),
		Tax:             strconv.FormatUint(uint64(a.Tax), 10),
		LastPaymentDate: a.LastPaymentDate.Unix(),
		Balance:         a.Balance.String(),
		Expiration:      exp,
		OwnerURI:        a.OwnerURI,
		MetaURI:         a.MetaURI,
		Terminal:        a.Terminal,
	}
}

func (r assetRow) toAsset() (models.Asset, error) {
	id, err := strconv.ParseUint(r.ID, 10, 64)
	if err != nil {
		return models.Asset{}, fmt.Errorf("id de ativo inválido %q: %w", r.ID, err)
	}
	rate, err := strconv.ParseUint(r.Tax, 10, 64)
	if err != nil {
		return models.Asset{}, fmt.Errorf("taxa inválida no ativo %s: %w", r.ID, err)
	}
	price, err := fixedpoint.ParseBaseUnits(r.Price)
	if err != nil {
		return models.Asset{}, fmt.Errorf("preço inválido no ativo %s: %w", r.ID, err)
	}
	balance, err := fixedpoint.ParseBaseUnits(r.Balance)
	if err != nil {
		return models.Asset{}, fmt.Errorf("saldo inválido no ativo %s: %w", r.ID, err)
	}
	a := models.Asset{
		ID:              models.AssetID(id),
		Owner:           common.HexToAddress(r.Owner),
		Price:           price,
		Tax:             tax.Rate(rate),
		LastPaymentDate: time.Unix(r.LastPaymentDate, 0).UTC(),
		Balance:         balance,
		OwnerURI:        r.OwnerURI,
		MetaURI:         r.MetaURI,
		Terminal:        r.Terminal,
	}
	if r.Expiration != 0 {
		a.Expiration = time.Unix(r.Expiration, 0).UTC()
	}
	return a, nil
}

// SaveSnapshot grava o estado completo e um checkpoint numa única transação.
func (d *DB) SaveSnapshot(snap models.Snapshot) (Checkpoint, error) {
	tx, err := d.Beginx()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM assets`); err != nil {
		return Checkpoint{}, fmt.Errorf("falha ao limpar ativos: %w", err)
	}

	var assets []models.Asset
	if snap.State != nil {
		assets = snap.State.Assets()
	}
	insertAsset := tx.Rebind(`INSERT INTO assets
		(id, seq, owner, price, tax, last_payment_date, balance, expiration, owner_uri, meta_uri, terminal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, a := range assets {
		r := toRow(i, a)
		if _, err := tx.Exec(insertAsset, r.ID, r.Seq, r.Owner, r.Price, r.Tax, r.LastPaymentDate,
			r.Balance, r.Expiration, r.OwnerURI, r.MetaURI, r.Terminal); err != nil {
			return Checkpoint{}, fmt.Errorf("falha ao salvar ativo %d: %w", a.ID, err)
		}
	}

	cp := Checkpoint{
		ID:          uuid.New().String(),
		SyncedBlock: snap.SyncedBlock,
		Account:     snap.Session.Account.Hex(),
		AssetCount:  len(assets),
		CreatedAt:   time.Now().UnixNano(),
	}
	if snap.Cursor != nil {
		cp.HasCursor = true
		cp.BlockNumber = snap.Cursor.BlockNumber
		cp.LogIndex = uint64(snap.Cursor.LogIndex)
	}
	insertCheckpoint := tx.Rebind(`INSERT INTO checkpoints
		(id, block_number, log_index, has_cursor, synced_block, account, asset_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.Exec(insertCheckpoint, cp.ID, cp.BlockNumber, cp.LogIndex, cp.HasCursor,
		cp.SyncedBlock, cp.Account, cp.AssetCount, cp.CreatedAt); err != nil {
		return Checkpoint{}, fmt.Errorf("falha ao salvar checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Checkpoint{}, fmt.Errorf("falha ao confirmar snapshot: %w", err)
	}
	return cp, nil
}

// LoadSnapshot lê o último snapshot gravado. found é false num banco novo.
func (d *DB) LoadSnapshot() (models.Snapshot, bool, error) {
	cp, found, err := d.LatestCheckpoint()
	if err != nil || !found {
		return models.Snapshot{}, false, err
	}

	var rows []assetRow
	if err := d.Select(&rows, `SELECT * FROM assets ORDER BY seq`); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("falha ao ler ativos: %w", err)
	}
	assets := make([]models.Asset, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAsset()
		if err != nil {
			return models.Snapshot{}, false, err
		}
		assets = append(assets, a)
	}
	st, err := models.NewStateFrom(assets)
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("snapshot inconsistente: %w", err)
	}

	snap := models.Snapshot{
		State:       st,
		Session:     models.Session{Account: common.HexToAddress(cp.Account)},
		SyncedBlock: cp.SyncedBlock,
	}
	if cp.HasCursor {
		snap.Cursor = &models.Position{BlockNumber: cp.BlockNumber, LogIndex: uint(cp.LogIndex)}
	}
	return snap, true, nil
}

// LatestCheckpoint retorna o checkpoint mais recente.
func (d *DB) LatestCheckpoint() (Checkpoint, bool, error) {
	var cp Checkpoint
	err := d.Get(&cp, `SELECT * FROM checkpoints ORDER BY created_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("falha ao ler checkpoint: %w", err)
	}
	return cp, true, nil
}

// ErrKeepCheckpoints indica uma poda que apagaria o checkpoint de retomada.
var ErrKeepCheckpoints = errors.New("storage: é preciso manter ao menos um checkpoint")

// PruneCheckpoints mantém apenas os keep checkpoints mais recentes. keep < 1
// é recusado: o checkpoint mais recente é o que LoadSnapshot retoma.
func (d *DB) PruneCheckpoints(keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("%w: keep=%d", ErrKeepCheckpoints, keep)
	}
	res, err := d.Exec(d.Rebind(`DELETE FROM checkpoints WHERE id NOT IN
		(SELECT id FROM checkpoints ORDER BY created_at DESC LIMIT ?)`), keep)
	if err != nil {
		return 0, fmt.Errorf("falha ao podar checkpoints: %w", err)
	}
	return res.RowsAffected()
}
