// Package influx ships frame-rate and station-intensity samples to
// InfluxDB. When the server is unreachable the manager degrades to a
// gzip-compressed line-protocol file so a run's metrics are never lost.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultBucketNames are the buckets the engine writes to:
// per-frame performance samples and per-station intensity readings.
var DefaultBucketNames = []string{
	"sim_performance",
	"station_intensity",
}

const bucketRetentionSeconds = 60 * 60 * 24 * 90 // 90 days

// Manager owns the InfluxDB client and one write API per bucket.
// IsValid is false when writes go to the backup file instead.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
}

func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect dials InfluxDB using the influx.* config keys. A failed ping
// is not an error; the manager opens the backup file and carries on.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	url := fmt.Sprintf("%s://%s:%s",
		viper.GetString("influx.protocol"),
		viper.GetString("influx.host"),
		viper.GetString("influx.port"),
	)
	m.Client = influxdb2.NewClientWithOptions(url, viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(context.Background())
	if err != nil || !running {
		m.IsValid = false
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, metrics go to the backup file")
		return nil
	}

	m.IsValid = true
	if err := m.ensureOrgAndBuckets(); err != nil {
		return err
	}
	m.startWriters()
	m.Logger.Info().Str("url", url).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %v", err)
	}
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) ensureOrgAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	orgsAPI := m.Client.OrganizationsAPI()
	org, err := orgsAPI.FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		if org, err = orgsAPI.CreateOrganizationWithName(ctx, orgName); err != nil {
			return fmt.Errorf("creating organization %q: %w", orgName, err)
		}
	}

	retention := domain.RetentionRuleTypeExpire
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		_, err := m.Client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &retention,
			EverySeconds: bucketRetentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("creating bucket %q: %w", bucket, err)
		}
	}
	return nil
}

func (m *Manager) startWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(orgName, bucket)
		m.Writers[bucket] = w

		go func(bucket string, errCh <-chan error) {
			for writeErr := range errCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucket).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.Logger.Debug().Int("buckets", len(m.Writers)).Msg("InfluxDB writers started")
}

// WritePoint sends a point to the bucket's writer, or appends it as
// line protocol to the backup file when no client is available.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
	}
	return nil
}

// ProcessMetricData turns a :METRIC: argument list into a bucket name
// and a point. The layout is positional:
//
//	0: bucket, 1: measurement, then any number of
//	tag::<name>::<value> and field::<type>::<name>::<value>
//
// where <type> is string, int or float. The two string cleaners undo
// the quoting applied by the sender.
func ProcessMetricData(data []string, fixEscapeQuotes func(string) string, trimQuotes func(string) string) (
	bucket string,
	point *influxdb2_write.Point,
	err error,
) {
	for i, v := range data {
		data[i] = fixEscapeQuotes(trimQuotes(v))
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])

	for _, entry := range data[2:] {
		parts := strings.Split(entry, "::")
		switch {
		case strings.HasPrefix(entry, "tag::") && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case strings.HasPrefix(entry, "field::") && len(parts) >= 4:
			if err := addField(point, parts[1], parts[2], parts[3]); err != nil {
				return "", nil, err
			}
		}
	}
	return bucket, point, nil
}

func addField(point *influxdb2_write.Point, fieldType, name, value string) error {
	switch fieldType {
	case "string":
		point.AddField(name, value)
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("error converting field value '%s' to int: %w", value, err)
		}
		point.AddField(name, intVal)
	case "float":
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("error converting field value '%s' to float: %w", value, err)
		}
		point.AddField(name, floatVal)
	}
	return nil
}
