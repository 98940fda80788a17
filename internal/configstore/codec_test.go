package configstore

import (
	"testing"

	"github.com/arencloud/stackdeck/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePrefersCurrentKeys(t *testing.T) {
	doc := `{"instances":[{"name":"new"}],"localstackInstances":[{"name":"old"}],"defaultInstanceName":"new","defaultInstance":"old"}`
	cfg, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, cfg.Instances, 1)
	assert.Equal(t, "new", cfg.Instances[0].Name)
	assert.Equal(t, "new", cfg.DefaultInstanceName)
}

func TestDecodeKeepsDuplicatesAndMissingDefault(t *testing.T) {
	cfg, err := Decode([]byte(`{"instances":[{"name":"a"},{"name":"a","region":"eu-west-1"}]}`))
	require.NoError(t, err)
	assert.Len(t, cfg.Instances, 2)
	assert.Empty(t, cfg.DefaultInstanceName)
	got, ok := cfg.Find("a")
	require.True(t, ok)
	assert.Empty(t, got.Region, "lookup resolves to the first match")
}

func TestEncodeShape(t *testing.T) {
	b, err := Encode(Default())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"accessKeyId": "test"`)
	assert.Contains(t, string(b), `"defaultInstanceName": "localstack"`)

	empty, err := Encode(models.Configuration{})
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"instances": []`)
}
