// FILE: confspec/sources_test.go

package confspec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEtcd struct {
	data map[string]string
	err  error
}

func (f *fakeEtcd) GetPrefix(_ context.Context, _ string) (map[string]string, error) {
	return f.data, f.err
}

type fakeConfigMaps struct {
	data map[string]string
	err  error
}

func (f *fakeConfigMaps) ConfigMapData(_ context.Context, _, _ string) (map[string]string, error) {
	return f.data, f.err
}

func TestNewSourceValidation(t *testing.T) {
	tests := []struct {
		name       string
		sourceType SourceType
		opts       SourceOptions
	}{
		{"DictWithoutData", SourceDict, SourceOptions{}},
		{"JSONWithoutAnything", SourceJSON, SourceOptions{}},
		{"YAMLWithoutFilename", SourceYAML, SourceOptions{}},
		{"TOMLWithoutFilename", SourceTOML, SourceOptions{}},
		{"EtcdWithoutClient", SourceEtcd, SourceOptions{}},
		{"KubernetesWithoutClient", SourceKubernetes, SourceOptions{Name: "cm"}},
		{"KubernetesWithoutName", SourceKubernetes, SourceOptions{ConfigMapClient: &fakeConfigMaps{}}},
		{"KubernetesBadConfigType", SourceKubernetes, SourceOptions{
			ConfigMapClient: &fakeConfigMaps{}, Name: "cm", ConfigType: "ini",
		}},
		{"UnknownType", SourceType("redis"), SourceOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSource(tt.sourceType, tt.opts)
			assert.ErrorIs(t, err, ErrSource)
		})
	}
}

func TestJSONSource(t *testing.T) {
	t.Run("FromRawData", func(t *testing.T) {
		source, err := NewSource(SourceJSON, SourceOptions{Raw: []byte(`{"a": 1}`)})
		require.NoError(t, err)
		data, err := source.GetData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, data)
	})

	t.Run("FromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"a": "x"}`), 0644))

		source, err := NewSource(SourceJSON, SourceOptions{Filename: path})
		require.NoError(t, err)
		data, err := source.GetData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": "x"}, data)
	})

	t.Run("BadRawData", func(t *testing.T) {
		source, err := NewSource(SourceJSON, SourceOptions{Raw: []byte(`{`)})
		require.NoError(t, err)
		_, err = source.GetData(context.Background())
		assert.ErrorIs(t, err, ErrLoad)
	})
}

func TestEnvironmentSource(t *testing.T) {
	t.Setenv("CONFSPEC_SOURCE_TEST", "present")

	source, err := NewSource(SourceEnvironment, SourceOptions{})
	require.NoError(t, err)
	data, err := source.GetData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "present", data["CONFSPEC_SOURCE_TEST"])
}

func TestEtcdSource(t *testing.T) {
	t.Run("NestsSlashKeys", func(t *testing.T) {
		source, err := NewSource(SourceEtcd, SourceOptions{
			EtcdClient: &fakeEtcd{data: map[string]string{
				"/db/port": "5432",
				"/db/name": "mydb",
				"/debug":   "true",
			}},
		})
		require.NoError(t, err)

		data, err := source.GetData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"db":    map[string]any{"port": "5432", "name": "mydb"},
			"debug": "true",
		}, data)
	})

	t.Run("ClientError", func(t *testing.T) {
		source, err := NewSource(SourceEtcd, SourceOptions{
			EtcdClient: &fakeEtcd{err: errors.New("connection refused")},
		})
		require.NoError(t, err)
		_, err = source.GetData(context.Background())
		assert.ErrorIs(t, err, ErrLoad)
	})
}

func TestKubernetesSource(t *testing.T) {
	t.Run("PlainData", func(t *testing.T) {
		source, err := NewSource(SourceKubernetes, SourceOptions{
			ConfigMapClient: &fakeConfigMaps{data: map[string]string{"name": "mydb"}},
			Name:            "app-config",
		})
		require.NoError(t, err)

		data, err := source.GetData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "mydb"}, data)
	})

	t.Run("EmbeddedYAMLDocument", func(t *testing.T) {
		source, err := NewSource(SourceKubernetes, SourceOptions{
			ConfigMapClient: &fakeConfigMaps{data: map[string]string{
				"config.yaml": "db:\n  port: 5432\n",
			}},
			Name:       "app-config",
			DataKey:    "config.yaml",
			ConfigType: FileTypeYAML,
		})
		require.NoError(t, err)

		data, err := source.GetData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"db": map[string]any{"port": 5432},
		}, data)
	})

	t.Run("MissingDataKey", func(t *testing.T) {
		source, err := NewSource(SourceKubernetes, SourceOptions{
			ConfigMapClient: &fakeConfigMaps{data: map[string]string{}},
			Name:            "app-config",
			DataKey:         "config.json",
		})
		require.NoError(t, err)
		_, err = source.GetData(context.Background())
		assert.ErrorIs(t, err, ErrLoad)
	})
}

func TestSourceAsLoadArgument(t *testing.T) {
	spec, err := New(Schema{
		"db": {Type: "dict", Items: Schema{
			"port": {Type: "int", Default: 5432},
		}},
	})
	require.NoError(t, err)

	etcd := &fakeEtcd{data: map[string]string{"/db/port": "6432"}}
	require.NoError(t, spec.AddSource("etcd", SourceEtcd, SourceOptions{EtcdClient: etcd}))

	cfg, err := spec.LoadConfig("etcd")
	require.NoError(t, err)
	port, err := cfg.Int64("db.port")
	require.NoError(t, err)
	assert.Equal(t, int64(6432), port)
}
