package seed

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/logging"
	"medledger/m/internal/stock"
)

// medicineRow mirrors one CSV line. Numbers are kept as text so that a bad
// cell skips the row instead of failing the whole file.
type medicineRow struct {
	Name       string `csv:"name"`
	Strength   string `csv:"strength"`
	BatchNo    string `csv:"batch_no"`
	ExpiryDate string `csv:"expiry_date"`
	Quantity   string `csv:"quantity"`
	UnitPrice  string `csv:"unit_price"`
}

// LoadMedicines imports the CSV at path into the ledger and returns how many
// rows were added.
func LoadMedicines(ctx context.Context, ledger *stock.Ledger, path string, log *zap.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to load medicine list %s", path)
	}
	defer file.Close()
	return Load(ctx, ledger, file, log)
}

// Load imports medicines from r. Rows with unreadable values, duplicate
// batches or failing validation are logged and skipped.
func Load(ctx context.Context, ledger *stock.Ledger, r io.Reader, log *zap.Logger) (int, error) {
	log = logging.OrNop(log)

	var rows []*medicineRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, errors.Wrap(err, "unable to read medicine csv")
	}

	added := 0
	for i, row := range rows {
		line := i + 2
		in, err := row.input()
		if err != nil {
			log.Warn("skipping medicine row", zap.Int("line", line), zap.Error(err))
			continue
		}
		m, err := ledger.AddMedicine(ctx, in)
		if errors.Is(err, domain.ErrStorage) {
			return added, err
		}
		if err != nil {
			log.Warn("skipping medicine row", zap.Int("line", line), zap.String("name", in.Name), zap.Error(err))
			continue
		}
		log.Debug("medicine seeded", zap.Int64("medicine_id", m.ID), zap.String("name", m.Name))
		added++
	}

	log.Info("seeded medicine list", zap.Int("rows", len(rows)), zap.Int("added", added))
	return added, nil
}

func (row *medicineRow) input() (stock.MedicineInput, error) {
	in := stock.MedicineInput{
		Name:     row.Name,
		Strength: row.Strength,
		BatchNo:  row.BatchNo,
	}

	qty, err := cast.ToInt64E(strings.TrimSpace(row.Quantity))
	if err != nil {
		return in, errors.Wrapf(err, "quantity %q", row.Quantity)
	}
	in.Quantity = qty

	if in.UnitPrice, err = decimal.NewFromString(strings.TrimSpace(row.UnitPrice)); err != nil {
		return in, errors.Wrapf(err, "unit price %q", row.UnitPrice)
	}

	if expiry := strings.TrimSpace(row.ExpiryDate); expiry != "" {
		t, err := dateparse.ParseLocal(expiry)
		if err != nil {
			return in, errors.Wrapf(err, "expiry date %q", row.ExpiryDate)
		}
		in.ExpiryDate = t.Format(domain.DateLayout)
	}
	return in, nil
}
