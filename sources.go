// FILE: confspec/sources.go

package confspec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Source is one candidate configuration provider. A source hands back an
// already-materialized mapping; the resolution engine never parses remote
// wire formats itself.
type Source interface {
	GetData(ctx context.Context) (map[string]any, error)
}

// WatchableSource is a Source that can monitor itself for changes and push
// fresh data to the callback. Sources without a native watch mechanism are
// polled instead (see Spec.WatchSource).
type WatchableSource interface {
	Source
	Watch(ctx context.Context, changed func(map[string]any)) error
}

// SourceType names a built-in source constructor for AddSource.
type SourceType string

const (
	SourceDict        SourceType = "dict"
	SourceJSON        SourceType = "json"
	SourceYAML        SourceType = "yaml"
	SourceTOML        SourceType = "toml"
	SourceEnvironment SourceType = "environment"
	SourceEtcd        SourceType = "etcd"
	SourceKubernetes  SourceType = "kubernetes"
)

// SupportedSources lists the built-in source types.
var SupportedSources = []SourceType{
	SourceDict, SourceJSON, SourceYAML, SourceTOML,
	SourceEnvironment, SourceEtcd, SourceKubernetes,
}

// EtcdClient is the boundary contract for an etcd-backed source. The
// returned map is keyed by slash-joined paths relative to the requested
// prefix; values are raw strings converted later by item resolution.
type EtcdClient interface {
	GetPrefix(ctx context.Context, prefix string) (map[string]string, error)
}

// ConfigMapClient is the boundary contract for a Kubernetes ConfigMap
// source: it returns the data section of the named ConfigMap.
type ConfigMapClient interface {
	ConfigMapData(ctx context.Context, namespace, name string) (map[string]string, error)
}

// SourceOptions carries the per-type arguments for NewSource. Only the
// fields relevant to the requested type are consulted.
type SourceOptions struct {
	// Data is the mapping for dict sources.
	Data map[string]any

	// Raw is a literal JSON document for json sources, used instead of
	// Filename when non-nil.
	Raw []byte

	// Filename names the backing file for json, yaml, and toml sources.
	Filename string

	// EtcdClient and Key configure an etcd source. Key defaults to "/".
	EtcdClient EtcdClient
	Key        string

	// ConfigMapClient, Name, and Namespace configure a kubernetes source.
	// Namespace defaults to "default". If DataKey is set, the value under
	// that key is itself parsed as a ConfigType document.
	ConfigMapClient ConfigMapClient
	Name            string
	Namespace       string
	DataKey         string
	ConfigType      FileType
}

// NewSource builds a built-in source, validating its options. Misconfigured
// sources fail here, at registration, rather than at load time.
func NewSource(sourceType SourceType, opts SourceOptions) (Source, error) {
	switch sourceType {
	case SourceDict:
		if opts.Data == nil {
			return nil, fmt.Errorf("%w: dict source requires Data", ErrSource)
		}
		return &dictSource{data: opts.Data}, nil

	case SourceJSON:
		if opts.Raw == nil && opts.Filename == "" {
			return nil, fmt.Errorf("%w: json source requires Raw or Filename", ErrSource)
		}
		if opts.Raw != nil {
			return &jsonDataSource{raw: opts.Raw}, nil
		}
		return &fileSource{filename: opts.Filename, fileType: FileTypeJSON}, nil

	case SourceYAML:
		if opts.Filename == "" {
			return nil, fmt.Errorf("%w: yaml source requires Filename", ErrSource)
		}
		return &fileSource{filename: opts.Filename, fileType: FileTypeYAML}, nil

	case SourceTOML:
		if opts.Filename == "" {
			return nil, fmt.Errorf("%w: toml source requires Filename", ErrSource)
		}
		return &fileSource{filename: opts.Filename, fileType: FileTypeTOML}, nil

	case SourceEnvironment:
		return &environmentSource{}, nil

	case SourceEtcd:
		if opts.EtcdClient == nil {
			return nil, fmt.Errorf("%w: etcd source requires EtcdClient", ErrSource)
		}
		key := opts.Key
		if key == "" {
			key = "/"
		}
		return &etcdSource{client: opts.EtcdClient, key: key}, nil

	case SourceKubernetes:
		if opts.ConfigMapClient == nil {
			return nil, fmt.Errorf("%w: kubernetes source requires ConfigMapClient", ErrSource)
		}
		if opts.Name == "" {
			return nil, fmt.Errorf("%w: kubernetes source requires a ConfigMap Name", ErrSource)
		}
		configType := opts.ConfigType
		if configType == "" {
			configType = FileTypeJSON
		}
		if !validFileType(configType) {
			return nil, fmt.Errorf("%w: kubernetes source config type %q is not "+
				"supported (supported: %v)", ErrSource, opts.ConfigType, FileTypes)
		}
		namespace := opts.Namespace
		if namespace == "" {
			namespace = "default"
		}
		return &kubernetesSource{
			client:     opts.ConfigMapClient,
			name:       opts.Name,
			namespace:  namespace,
			dataKey:    opts.DataKey,
			configType: configType,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported source type %q (supported: %v)",
			ErrSource, sourceType, SupportedSources)
	}
}

type dictSource struct {
	data map[string]any
}

func (s *dictSource) GetData(context.Context) (map[string]any, error) {
	return s.data, nil
}

type jsonDataSource struct {
	raw []byte
}

func (s *jsonDataSource) GetData(context.Context) (map[string]any, error) {
	data := make(map[string]any)
	if err := json.Unmarshal(s.raw, &data); err != nil {
		return nil, fmt.Errorf("%w: parsing json source data: %v", ErrLoad, err)
	}
	return data, nil
}

// fileSource reads a JSON, YAML, or TOML file on every poll. Its Watch
// implementation lives in watch.go and treats file deletion as fatal.
type fileSource struct {
	filename string
	fileType FileType
}

func (s *fileSource) GetData(context.Context) (map[string]any, error) {
	return loadFileToMap(s.filename, s.fileType, ErrLoad)
}

// environmentSource snapshots the process environment.
type environmentSource struct{}

func (s *environmentSource) GetData(context.Context) (map[string]any, error) {
	return environSnapshot(), nil
}

func environSnapshot() map[string]any {
	environ := os.Environ()
	snapshot := make(map[string]any, len(environ))
	for _, entry := range environ {
		if i := strings.IndexByte(entry, '='); i >= 0 {
			snapshot[entry[:i]] = entry[i+1:]
		}
	}
	return snapshot
}

// etcdSource materializes a nested mapping from the keys under a prefix.
type etcdSource struct {
	client EtcdClient
	key    string
}

func (s *etcdSource) GetData(ctx context.Context) (map[string]any, error) {
	kvs, err := s.client.GetPrefix(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: etcd prefix %s: %v", ErrLoad, s.key, err)
	}

	data := make(map[string]any)
	for key, value := range kvs {
		segments := strings.Split(strings.Trim(key, "/"), "/")
		setNestedValue(data, strings.Join(segments, "."), ".", value)
	}
	return data, nil
}

// kubernetesSource reads a ConfigMap's data section, optionally parsing one
// embedded document out of it.
type kubernetesSource struct {
	client     ConfigMapClient
	name       string
	namespace  string
	dataKey    string
	configType FileType
}

func (s *kubernetesSource) GetData(ctx context.Context) (map[string]any, error) {
	raw, err := s.client.ConfigMapData(ctx, s.namespace, s.name)
	if err != nil {
		return nil, fmt.Errorf("%w: configmap %s/%s: %v", ErrLoad, s.namespace, s.name, err)
	}

	if s.dataKey == "" {
		data := make(map[string]any, len(raw))
		for key, value := range raw {
			data[key] = value
		}
		return data, nil
	}

	document, present := raw[s.dataKey]
	if !present {
		return nil, fmt.Errorf("%w: configmap %s/%s has no key %q",
			ErrLoad, s.namespace, s.name, s.dataKey)
	}
	return parseDocument([]byte(document), s.configType)
}

func parseDocument(raw []byte, fileType FileType) (map[string]any, error) {
	data := make(map[string]any)
	switch fileType {
	case FileTypeJSON:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: parsing embedded JSON document: %v", ErrLoad, err)
		}
	case FileTypeYAML:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: parsing embedded YAML document: %v", ErrLoad, err)
		}
	case FileTypeTOML:
		if err := toml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: parsing embedded TOML document: %v", ErrLoad, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported document type %q", ErrLoad, fileType)
	}
	return data, nil
}
