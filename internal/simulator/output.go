package simulator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dinersim/dinersim/internal/cloudwriter"
	"github.com/dinersim/dinersim/internal/models"
	"github.com/dinersim/dinersim/internal/simulator/producers"
	log "github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// OutputDestination receives the live event streams as the run
// progresses, keyed by topic.
type OutputDestination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

type ConsoleOutput struct{}

func (c *ConsoleOutput) WriteMessage(topic string, msg []byte) error {
	output := fmt.Sprintf("[%s] %s\n", topic, string(msg))
	if _, err := os.Stdout.Write([]byte(output)); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }

// JSONOutput appends one JSON line per event to a file per topic under
// basePath/folder/streams.
type JSONOutput struct {
	basePath string
	folder   string
	files    map[string]*os.File
}

func NewJSONOutput(basePath, folder string) *JSONOutput {
	return &JSONOutput{
		basePath: basePath,
		folder:   folder,
		files:    make(map[string]*os.File),
	}
}

func (j *JSONOutput) WriteMessage(topic string, msg []byte) error {
	file, ok := j.files[topic]
	if !ok {
		dir := filepath.Join(j.basePath, j.folder, "streams")
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
		var err error
		file, err = os.Create(filepath.Join(dir, topic+".jsonl"))
		if err != nil {
			return err
		}
		j.files[topic] = file
	}
	if _, err := file.Write(msg); err != nil {
		return err
	}
	_, err := file.WriteString("\n")
	return err
}

func (j *JSONOutput) Close() error {
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ParquetOutput writes one parquet file per topic. When the output
// destination is a cloud provider, files are streamed to object storage
// through a CloudWriterFactory instead of the local filesystem.
type ParquetOutput struct {
	basePath           string
	folder             string
	mu                 sync.Mutex
	writers            map[string]*writer.ParquetWriter
	files              map[string]source.ParquetFile
	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string
}

func NewParquetOutput(config *models.Config) (*ParquetOutput, error) {
	p := &ParquetOutput{
		basePath: config.OutputPath,
		folder:   config.OutputFolder,
		writers:  make(map[string]*writer.ParquetWriter),
		files:    make(map[string]source.ParquetFile),
	}

	if config.OutputDestination != "local" {
		var factory cloudwriter.CloudWriterFactory
		var err error

		switch config.CloudStorage.Provider {
		case "s3":
			factory, err = cloudwriter.NewS3WriterFactory(config.CloudStorage.Region)
		default:
			return nil, fmt.Errorf("unsupported cloud storage provider: %s", config.CloudStorage.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
		}

		p.cloudWriterFactory = factory
		p.cloudBucketName = config.CloudStorage.BucketName
	}

	return p, nil
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	p.mu.Lock()
	pw, ok := p.writers[topic]
	if !ok {
		var err error
		pw, err = p.createNewWriter(topic)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to create new writer: %w", err)
		}
	}
	p.mu.Unlock()

	event, err := decodeStreamEvent(topic, msg)
	if err != nil {
		return err
	}
	if err := pw.Write(event); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (p *ParquetOutput) createNewWriter(topic string) (*writer.ParquetWriter, error) {
	var fw source.ParquetFile
	var err error
	if p.cloudWriterFactory != nil {
		objectPath := filepath.Join(p.folder, "streams", topic+".parquet")
		cloudWriter, err := p.cloudWriterFactory.NewWriter(p.cloudBucketName, objectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		fw = cloudwriter.NewCloudParquetFile(cloudWriter)
	} else {
		dir := filepath.Join(p.basePath, p.folder, "streams")
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
		fw, err = local.NewLocalFileWriter(filepath.Join(dir, topic+".parquet"))
		if err != nil {
			return nil, fmt.Errorf("failed to create local file writer: %w", err)
		}
	}

	sc, err := GetSchema(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, nil, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	pw.SchemaHandler = sc

	p.writers[topic] = pw
	p.files[topic] = fw
	return pw, nil
}

// decodeStreamEvent turns the serialized message back into its typed
// stream event so the parquet writer sees the tagged struct.
func decodeStreamEvent(topic string, msg []byte) (interface{}, error) {
	var event interface{}
	switch topic {
	case TopicArrivals:
		event = new(ArrivalStreamEvent)
	case TopicDecisions:
		event = new(DecisionStreamEvent)
	case TopicExposure:
		event = new(ExposureStreamEvent)
	case TopicDaySummaries:
		event = new(DaySummaryStreamEvent)
	default:
		return nil, fmt.Errorf("unknown topic: %s", topic)
	}
	if err := json.Unmarshal(msg, event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", topic, err)
	}
	return event, nil
}

func (p *ParquetOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for topic, pw := range p.writers {
		if err := pw.WriteStop(); err != nil {
			lastErr = err
			log.WithError(err).WithField("topic", topic).Error("error closing parquet writer")
		}
		if f, ok := p.files[topic]; ok {
			if err := f.Close(); err != nil {
				lastErr = err
				log.WithError(err).WithField("topic", topic).Error("error closing parquet file")
			}
		}
	}
	return lastErr
}

func determineOutputDestination(config *models.Config) (OutputDestination, error) {
	if config.KafkaEnabled || config.StreamFormat == models.StreamFormatKafka {
		producer, err := producers.NewSaramaProducer(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
		}
		return producer, nil
	}
	switch config.StreamFormat {
	case models.StreamFormatParquet:
		return NewParquetOutput(config)
	case models.StreamFormatJSON:
		return NewJSONOutput(config.OutputPath, config.OutputFolder), nil
	case models.StreamFormatConsole:
		return &ConsoleOutput{}, nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported stream format: %s", config.StreamFormat)
	}
}
