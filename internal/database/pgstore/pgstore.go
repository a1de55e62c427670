package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"nftsalesgo/internal/sales"
)

const saleColumns = `id, seller, buyer, ask_price, received_price, token_id,
       sale_type, status, start_time, end_time, min_bid_increment,
       created_at, updated_at, version`

// uniqueViolation is raised by sales_open_token_idx.
const uniqueViolation = "23505"

// Store is the Postgres-backed SaleLedger. The optional LRU only caches
// committed rows and is refreshed on every commit, which is correct as long
// as this process is the single writer.
type Store struct {
	db    *sql.DB
	cache *lru.Cache[uint64, *sales.Sale]
}

var _ sales.Store = (*Store)(nil)

func New(db *sql.DB, cacheSize int) (*Store, error) {
	st := &Store{db: db}
	if cacheSize > 0 {
		c, err := lru.New[uint64, *sales.Sale](cacheSize)
		if err != nil {
			return nil, err
		}
		st.cache = c
	}
	return st, nil
}

func (st *Store) NextID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := st.db.QueryRowContext(ctx, `SELECT nextval('sales_id_seq')`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (st *Store) Get(ctx context.Context, id uint64) (*sales.Sale, error) {
	if st.cache != nil {
		if s, ok := st.cache.Get(id); ok {
			return s.Clone(), nil
		}
	}
	row := st.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	s, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sales.ErrNotFound
		}
		return nil, err
	}
	if st.cache != nil {
		st.cache.Add(id, s.Clone())
	}
	return s, nil
}

func (st *Store) List(ctx context.Context, f sales.Filter) ([]*sales.Sale, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Seller != "" {
		args = append(args, f.Seller)
		where = append(where, fmt.Sprintf("seller = $%d", len(args)))
	}
	q := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return st.query(ctx, q, args...)
}

func (st *Store) OpenByToken(ctx context.Context, tokenID string) (*sales.Sale, error) {
	row := st.db.QueryRowContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE token_id = $1 AND status = 'OPEN'`, tokenID)
	s, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sales.ErrNotFound
	}
	return s, err
}

func (st *Store) Overdue(ctx context.Context, before int64, limit int) ([]*sales.Sale, error) {
	if limit <= 0 {
		limit = 100
	}
	return st.query(ctx, `SELECT `+saleColumns+` FROM sales
	     WHERE status = 'OPEN' AND end_time < to_timestamp($1)
	  ORDER BY end_time LIMIT $2`, before, limit)
}

func (st *Store) Commit(ctx context.Context, b sales.Batch) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsertQ = `
	  INSERT INTO sales (id, seller, buyer, ask_price, received_price, token_id,
	                     sale_type, status, start_time, end_time, min_bid_increment,
	                     created_at, updated_at, version)
	       VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	  ON CONFLICT (id) DO UPDATE
	        SET buyer          = EXCLUDED.buyer,
	            ask_price      = EXCLUDED.ask_price,
	            received_price = EXCLUDED.received_price,
	            status         = EXCLUDED.status,
	            start_time     = EXCLUDED.start_time,
	            end_time       = EXCLUDED.end_time,
	            updated_at     = EXCLUDED.updated_at,
	            version        = EXCLUDED.version
	      WHERE sales.version = EXCLUDED.version - 1`
	for _, s := range b.Sales {
		res, err := tx.ExecContext(ctx, upsertQ,
			s.ID, s.Seller, s.Buyer, s.AskPrice, s.ReceivedPrice, s.TokenID,
			string(s.Type), string(s.Status), s.StartTime, s.EndTime, s.MinBidIncrement,
			s.CreatedAt, s.UpdatedAt, s.Version,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %s (sale %d)", sales.ErrTokenListed, s.TokenID, s.ID)
			}
			return fmt.Errorf("upsert sale %d: %w", s.ID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("upsert sale %d: %w", s.ID, err)
		} else if n == 0 {
			if st.cache != nil {
				st.cache.Remove(s.ID)
			}
			return fmt.Errorf("%w: sale %d at version %d", sales.ErrStaleSale, s.ID, s.Version)
		}
	}

	const insEvent = `
	  INSERT INTO sale_events (sale_id, kind, payload, at)
	       VALUES ($1, $2, $3, $4)
	    RETURNING seq`
	for i := range b.Events {
		e := &b.Events[i]
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.Kind, err)
		}
		if err = tx.QueryRowContext(ctx, insEvent, e.SaleID, string(e.Kind), payload, e.At).Scan(&e.Seq); err != nil {
			return fmt.Errorf("insert event %s: %w", e.Kind, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	if st.cache != nil {
		for _, s := range b.Sales {
			st.cache.Add(s.ID, s.Clone())
		}
	}
	return nil
}

func (st *Store) Events(ctx context.Context, saleID uint64) ([]sales.Event, error) {
	rows, err := st.db.QueryContext(ctx,
		`SELECT seq, payload FROM sale_events WHERE sale_id = $1 ORDER BY seq`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []sales.Event{}
	for rows.Next() {
		var (
			seq     uint64
			payload []byte
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, err
		}
		var e sales.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			zap.L().Warn("pgstore.bad_event_payload", zap.Uint64("seq", seq), zap.Error(err))
			continue
		}
		e.Seq = seq
		out = append(out, e)
	}
	return out, rows.Err()
}

func (st *Store) query(ctx context.Context, q string, args ...any) ([]*sales.Sale, error) {
	rows, err := st.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*sales.Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSale(sc scanner) (*sales.Sale, error) {
	s := &sales.Sale{}
	var typ, status string
	if err := sc.Scan(&s.ID, &s.Seller, &s.Buyer, &s.AskPrice, &s.ReceivedPrice, &s.TokenID,
		&typ, &status, &s.StartTime, &s.EndTime, &s.MinBidIncrement,
		&s.CreatedAt, &s.UpdatedAt, &s.Version); err != nil {
		return nil, err
	}
	s.Type = sales.Type(typ)
	s.Status = sales.Status(status)
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
