package zookeeper

import (
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    "gopkg.in/yaml.v3"
)

const (
    DefaultQuorum         = "localhost:2181"
    DefaultZnodeParent    = "/elasticsearch/discovery"
    DefaultConnectTimeout = 30 * time.Second
    DefaultSessionTimeout = 30 * time.Second

    // SettingsFile is the plugin-scoped settings file, relative to the node
    // configuration directory.
    SettingsFile = "discovery-zookeeper/discovery-zookeeper.yml"

    QuorumKey         = "discovery.zookeeper.quorum"
    ZnodeParentKey    = "discovery.zookeeper.znode.parent"
    ConnectTimeoutKey = "discovery.zookeeper.connect_timeout"
    SessionTimeoutKey = "discovery.zookeeper.session_timeout"
)

// Config holds the settings of one seed provider. It is populated once and
// never mutated afterwards.
type Config struct {
    // Quorum is a comma-separated list of ZooKeeper host:port endpoints.
    Quorum string
    // ZnodeParent is the namespace path whose direct children are members.
    ZnodeParent string
    // ConnectTimeout bounds the wait for the session handshake.
    ConnectTimeout time.Duration
    // SessionTimeout is the ZooKeeper session timeout requested on connect.
    SessionTimeout time.Duration
}

// Defaults returns the configuration used when no setting is present.
func Defaults() Config {
    return Config{
        Quorum:         DefaultQuorum,
        ZnodeParent:    DefaultZnodeParent,
        ConnectTimeout: DefaultConnectTimeout,
        SessionTimeout: DefaultSessionTimeout,
    }
}

func (c Config) withDefaults() Config {
    d := Defaults()
    if strings.TrimSpace(c.Quorum) == "" { c.Quorum = d.Quorum }
    if c.ZnodeParent == "" { c.ZnodeParent = d.ZnodeParent }
    c.ZnodeParent = trimParent(c.ZnodeParent)
    if c.ConnectTimeout <= 0 { c.ConnectTimeout = d.ConnectTimeout }
    if c.SessionTimeout <= 0 { c.SessionTimeout = d.SessionTimeout }
    return c
}

// trimParent drops trailing slashes, which the server rejects on every path
// except the root.
func trimParent(p string) string {
    if t := strings.TrimRight(p, "/"); t != "" { return t }
    if strings.HasPrefix(p, "/") { return "/" }
    return p
}

// Validate checks a defaulted Config.
func (c Config) Validate() error {
    if len(SplitServers(c.Quorum)) == 0 {
        return fmt.Errorf("%w: empty quorum", ErrInvalidConfig)
    }
    if !strings.HasPrefix(c.ZnodeParent, "/") {
        return fmt.Errorf("%w: znode parent %q must be an absolute path", ErrInvalidConfig, c.ZnodeParent)
    }
    if strings.Contains(c.ZnodeParent, "//") {
        return fmt.Errorf("%w: znode parent %q contains an empty segment", ErrInvalidConfig, c.ZnodeParent)
    }
    return nil
}

// SplitServers parses a comma-separated endpoint list, dropping blanks.
func SplitServers(csv string) []string {
    if csv == "" { return nil }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

// ConfigPath returns the settings file location under a node config dir.
func ConfigPath(configDir string) string {
    return filepath.Join(configDir, filepath.FromSlash(SettingsFile))
}

// LoadConfig reads a YAML settings file. Keys may be written flat
// ("discovery.zookeeper.quorum: ...") or nested; unknown keys are ignored.
// Missing settings fall back to Defaults.
func LoadConfig(path string) (Config, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        return Config{}, fmt.Errorf("%w: %v", ErrConfigLoad, err)
    }
    var raw map[string]any
    if err := yaml.Unmarshal(data, &raw); err != nil {
        return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigLoad, path, err)
    }
    flat := make(map[string]string)
    flatten("", raw, flat)

    cfg := Config{Quorum: flat[QuorumKey], ZnodeParent: flat[ZnodeParentKey]}
    if v := flat[ConnectTimeoutKey]; v != "" {
        if cfg.ConnectTimeout, err = time.ParseDuration(v); err != nil {
            return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigLoad, ConnectTimeoutKey, err)
        }
    }
    if v := flat[SessionTimeoutKey]; v != "" {
        if cfg.SessionTimeout, err = time.ParseDuration(v); err != nil {
            return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigLoad, SessionTimeoutKey, err)
        }
    }
    cfg = cfg.withDefaults()
    if err := cfg.Validate(); err != nil {
        return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigLoad, path, err)
    }
    return cfg, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
    keys := make([]string, 0, len(in))
    for k := range in { keys = append(keys, k) }
    sort.Strings(keys)
    for _, k := range keys {
        key := k
        if prefix != "" { key = prefix + "." + k }
        switch v := in[k].(type) {
        case map[string]any:
            flatten(key, v, out)
        case nil:
        case []any:
            // lists are accepted for the quorum: [zk1:2181, zk2:2181]
            parts := make([]string, 0, len(v))
            for _, e := range v { parts = append(parts, fmt.Sprint(e)) }
            out[key] = strings.Join(parts, ",")
        default:
            out[key] = fmt.Sprint(v)
        }
    }
}
