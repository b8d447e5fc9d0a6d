package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	c, err := load(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Driver, c.Driver)
	assert.Equal(t, Dsn, c.Dsn)
	assert.Equal(t, "exact", c.Match)
	assert.Equal(t, "ledger-setup", c.LockKey)
	assert.Empty(t, c.KafkaBrokers)
	assert.Equal(t, "kafka-go", c.KafkaClient)
}

func TestLoad_Overrides(t *testing.T) {
	c, err := load(env(map[string]string{
		"LEDGER_DRIVER":        "sqlite3",
		"LEDGER_DSN":           "/tmp/ledger.db",
		"LEDGER_MATCH":         "substring",
		"LEDGER_LOCK_KEY":      "",
		"LEDGER_KAFKA_BROKERS": "kafka0:9092, kafka1:9092,,",
		"LEDGER_KAFKA_CLIENT":  "sarama",
		"LEDGER_SEQ_URL":       "http://seq:5341",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", c.Driver)
	assert.Equal(t, "/tmp/ledger.db", c.Dsn)
	assert.Equal(t, "substring", c.Match)
	assert.Equal(t, "", c.LockKey)
	assert.Equal(t, []string{"kafka0:9092", "kafka1:9092"}, c.KafkaBrokers)
	assert.Equal(t, "sarama", c.KafkaClient)
	assert.Equal(t, "http://seq:5341", c.SeqURL)
}

func TestLoad_Invalid(t *testing.T) {
	for _, m := range []map[string]string{
		{"LEDGER_DRIVER": "mysql"},
		{"LEDGER_KAFKA_CLIENT": "confluent"},
		{"LEDGER_KAFKA_BROKERS": "kafka0:9092", "LEDGER_KAFKA_TOPIC": ""},
	} {
		_, err := load(env(m))
		assert.Error(t, err, m)
	}
}
