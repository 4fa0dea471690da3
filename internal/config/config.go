package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default window for the sentiment-vs-price comparison.
const (
	DefaultTrendStart = "2021-10-12"
	DefaultTrendEnd   = "2023-12-19"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Corpus locates the headline dataset and the optional date window.
type Corpus struct {
	DataPath string
	Start    time.Time
	End      time.Time
}

// Market configures the EODHD price client.
type Market struct {
	APIKey    string
	BaseURL   string
	RateLimit int
}

// Ingest holds configuration for the CSV -> staging documents step.
type Ingest struct {
	Corpus
	StagingDir   string
	Sink         string
	KafkaBrokers []string
	KafkaTopic   string
}

// Indexer holds configuration for loading staged documents into Elasticsearch.
type Indexer struct {
	Common
	StagingDir      string
	Shards          int
	BatchSize       int
	K1              float64
	B               float64
	StorePositions  bool
	StoreDocvectors bool
	StoreRaw        bool
	Recreate        bool
}

// Search configures the query runner binary.
type Search struct {
	Common
	Corpus
	TopK        int
	HistBins    int
	OutputDir   string
	CatalogPath string
}

// Trend configures the trend and price-overlay binary.
type Trend struct {
	Corpus
	Market
	OutputDir   string
	CatalogPath string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Corpus
	Market
	BindAddr    string
	DefaultK    int
	MaxK        int
	CatalogPath string
}

// LoadIngest builds an Ingest config from environment variables.
func LoadIngest() (*Ingest, error) {
	corpus, err := loadCorpus("", "")
	if err != nil {
		return nil, err
	}
	c := &Ingest{
		Corpus:       *corpus,
		StagingDir:   getEnv("STAGING_DIR", "processed_corpus/crypto"),
		Sink:         strings.ToLower(getEnv("INGEST_SINK", "dir")),
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "news_documents"),
	}

	switch c.Sink {
	case "dir":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
		}
		if c.KafkaTopic == "" {
			return nil, fmt.Errorf("KAFKA_TOPIC must be set for the kafka sink")
		}
	default:
		return nil, fmt.Errorf("INGEST_SINK must be dir or kafka, got %q", c.Sink)
	}

	return c, nil
}

// LoadIndexer builds an Indexer config from environment variables.
func LoadIndexer() (*Indexer, error) {
	c := &Indexer{
		Common:          loadCommon(),
		StagingDir:      getEnv("STAGING_DIR", "processed_corpus/crypto"),
		Shards:          getInt("INDEX_SHARDS", 1),
		BatchSize:       getInt("INDEX_BATCH_SIZE", 500),
		K1:              getFloat("BM25_K1", 0.9),
		B:               getFloat("BM25_B", 0.4),
		StorePositions:  getBool("INDEX_STORE_POSITIONS", true),
		StoreDocvectors: getBool("INDEX_STORE_DOCVECTORS", true),
		StoreRaw:        getBool("INDEX_STORE_RAW", true),
		Recreate:        getBool("INDEX_RECREATE", false),
	}

	if c.Shards <= 0 {
		return nil, fmt.Errorf("INDEX_SHARDS must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("INDEX_BATCH_SIZE must be positive")
	}
	if c.K1 < 0 {
		return nil, fmt.Errorf("BM25_K1 cannot be negative")
	}
	if c.B < 0 || c.B > 1 {
		return nil, fmt.Errorf("BM25_B must be within [0, 1]")
	}

	return c, nil
}

// LoadSearch builds a Search config from environment variables.
func LoadSearch() (*Search, error) {
	corpus, err := loadCorpus("", "")
	if err != nil {
		return nil, err
	}
	c := &Search{
		Common:      loadCommon(),
		Corpus:      *corpus,
		TopK:        getInt("SEARCH_TOP_K", 20),
		HistBins:    getInt("SEARCH_HIST_BINS", 10),
		OutputDir:   getEnv("OUTPUT_DIR", "outputs"),
		CatalogPath: getEnv("CATALOG_PATH", ""),
	}

	if c.TopK <= 0 {
		return nil, fmt.Errorf("SEARCH_TOP_K must be positive")
	}
	if c.HistBins <= 0 {
		return nil, fmt.Errorf("SEARCH_HIST_BINS must be positive")
	}

	return c, nil
}

// LoadTrend builds a Trend config from environment variables.
func LoadTrend() (*Trend, error) {
	corpus, err := loadCorpus(DefaultTrendStart, DefaultTrendEnd)
	if err != nil {
		return nil, err
	}
	market, err := loadMarket()
	if err != nil {
		return nil, err
	}
	return &Trend{
		Corpus:      *corpus,
		Market:      *market,
		OutputDir:   getEnv("OUTPUT_DIR", "outputs"),
		CatalogPath: getEnv("CATALOG_PATH", ""),
	}, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	corpus, err := loadCorpus("", "")
	if err != nil {
		return nil, err
	}
	market, err := loadMarket()
	if err != nil {
		return nil, err
	}
	c := &API{
		Common:   loadCommon(),
		Corpus:   *corpus,
		Market:   *market,
		BindAddr: getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultK: getInt("API_TOP_K", 10),
		MaxK:     getInt("API_MAX_TOP_K", 100),

		CatalogPath: getEnv("CATALOG_PATH", ""),
	}

	if c.DefaultK <= 0 {
		return nil, fmt.Errorf("API_TOP_K must be positive")
	}
	if c.MaxK <= 0 {
		return nil, fmt.Errorf("API_MAX_TOP_K must be positive")
	}
	if c.DefaultK > c.MaxK {
		return nil, fmt.Errorf("API_TOP_K cannot exceed API_MAX_TOP_K")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "crypto_news"),
	}
}

func loadCorpus(defaultStart, defaultEnd string) (*Corpus, error) {
	start, err := getDate("CORPUS_START", defaultStart)
	if err != nil {
		return nil, err
	}
	end, err := getDate("CORPUS_END", defaultEnd)
	if err != nil {
		return nil, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("CORPUS_END cannot be before CORPUS_START")
	}
	return &Corpus{
		DataPath: getEnv("DATA_PATH", "data/crypto-news.csv"),
		Start:    start,
		End:      end,
	}, nil
}

func loadMarket() (*Market, error) {
	m := &Market{
		APIKey:    getEnv("EODHD_API_KEY", ""),
		BaseURL:   getEnv("EODHD_BASE_URL", "https://eodhd.com/api"),
		RateLimit: getInt("EODHD_RATE_LIMIT", 10),
	}
	if m.RateLimit <= 0 {
		return nil, fmt.Errorf("EODHD_RATE_LIMIT must be positive")
	}
	return m, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDate reads a YYYY-MM-DD or RFC3339 value; an empty result means zero.
func getDate(key, fallback string) (time.Time, error) {
	raw := strings.TrimSpace(getEnv(key, fallback))
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD or RFC3339: %w", key, err)
	}
	return ts, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
