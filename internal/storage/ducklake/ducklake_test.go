package ducklake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachSQL(t *testing.T) {
	assert.Equal(t, "ATTACH 'ducklake:metadata.ducklake' AS lake", AttachSQL(Config{}))
	assert.Equal(t,
		"ATTACH 'ducklake:postgres:dbname=lake' AS lake (DATA_PATH 's3://bkt/processed/')",
		AttachSQL(Config{Metadata: "postgres:dbname=lake", DataPath: "s3://bkt/processed/"}))
}

func TestSecretSQL(t *testing.T) {
	got := SecretSQL(Config{Region: "eu-west-1"})
	assert.Equal(t, "CREATE OR REPLACE SECRET lake_s3 (TYPE S3, PROVIDER credential_chain, REGION 'eu-west-1')", got)

	got = SecretSQL(Config{KeyID: "k", Secret: "it's", Endpoint: "http://localhost:9000", URLStyle: "path"})
	assert.Equal(t,
		"CREATE OR REPLACE SECRET lake_s3 (TYPE S3, KEY_ID 'k', SECRET 'it''s', ENDPOINT 'localhost:9000', USE_SSL false, URL_STYLE 'path')",
		got)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "lake.main.orders", lakeTable("processed/orders"))
	assert.Equal(t, "stage_order_items", stageTable("processed/order-items"))
}
