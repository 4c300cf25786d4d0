package egress

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"flowexporter/internal/flow"
)

// createTableStatement mirrors the teacher's exact.ClickHouseWriter
// table, adapted to the nine canonical flow-record fields this exporter
// emits. This table archives already-exported records for retrospective
// querying; it is not live flow-table state, so it does not reintroduce
// the "no storage persistence across restarts" non-goal, which scopes
// the live table only.
const createTableStatement = `
CREATE TABLE IF NOT EXISTS exported_flows (
	ExportedAt  DateTime,
	SrcIP       String,
	DstIP       String,
	Protocol    UInt8,
	SrcPort     UInt16,
	DstPort     UInt16,
	FlowStartMs Int64,
	FlowEndMs   Int64,
	Packets     UInt64,
	Octets      UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ExportedAt)
ORDER BY (SrcIP, DstIP, ExportedAt);
`

// ClickHouseConfig mirrors the teacher's config.ClickHouseConfig shape.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseArchiver implements expiry.Archiver, mirroring every
// exported flow record into ClickHouse for retrospective querying.
// Grounded on internal/engine/impl/exact/writer_clickhouse.go.
type ClickHouseArchiver struct {
	conn driver.Conn
}

// NewClickHouseArchiver connects to ClickHouse and ensures the archive
// table exists.
func NewClickHouseArchiver(cfg ClickHouseConfig) (*ClickHouseArchiver, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("egress: connecting to clickhouse: %w", err)
	}
	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("egress: creating archive table: %w", err)
	}
	log.Println("egress: clickhouse archiver ready")
	return &ClickHouseArchiver{conn: conn}, nil
}

// Archive batch-inserts every snapshot in records into the archive
// table.
func (a *ClickHouseArchiver) Archive(ctx context.Context, records []flow.Snapshot) error {
	batch, err := a.conn.PrepareBatch(ctx, "INSERT INTO exported_flows")
	if err != nil {
		return fmt.Errorf("egress: preparing batch: %w", err)
	}

	now := time.Now()
	for _, rec := range records {
		if err := batch.Append(
			now,
			net.IP(rec.Key[0:4]).String(),
			net.IP(rec.Key[4:8]).String(),
			rec.Key.Protocol(),
			rec.Key.SrcPort(),
			rec.Key.DstPort(),
			rec.FlowStartMs,
			rec.FlowEndMs,
			rec.PacketDeltaCount,
			rec.OctetDeltaCount,
		); err != nil {
			return fmt.Errorf("egress: appending row: %w", err)
		}
	}
	return batch.Send()
}
