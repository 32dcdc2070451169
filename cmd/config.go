package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/changelog/internal/config"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	return config.Dir(), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage changelog configuration.

Running bare 'changelog config' is the same as 'changelog config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# changelog configuration
# See: changelog config show (for effective values and sources)

# Repository to read (default: current directory)
repo: "{{ .Repo }}"

# History range: from_ref is excluded, to_ref is the newest commit
# from_ref: ""
to_ref: "{{ .ToRef }}"

# Name of the group of commits newer than the newest tag
untagged_name: "{{ .UntaggedName }}"

# Regex applied to tag refs; group 1 is the displayed tag name
readable_tag_name: '{{ .ReadableTagName }}'

# Commits whose message matches are left out everywhere
ignore_commits_pattern: '{{ .IgnoreCommits }}'

# Go time layout and IANA zone for commit times
date_format: "{{ .DateFormat }}"
time_zone: "{{ .TimeZone }}"

# Bucket for commits that reference no issue
no_issue_name: "{{ .NoIssueName }}"
remove_issue_from_message: {{ .RemoveIssue }}

# Custom issue patterns. ${PATTERN_GROUP} is the whole match,
# ${PATTERN_GROUP_1} the first group.
# issues:
#   - name: Bugs
#     pattern: 'BUG-[0-9]+'
#     link: 'https://bugs.example.com/${PATTERN_GROUP}'

# Label patterns; the name is expanded like an issue link.
# labels:
#   - name: '${PATTERN_GROUP_1}'
#     pattern: '#(perf|security|docs)\b'

github:
  enabled: {{ .GitHubEnabled }}
  # owner/repo (default: parsed from the origin remote)
  # repo: ""

jira:
  # e.g. https://jira.example.com; empty disables Jira lookups
  server: "{{ .JiraServer }}"
  username: "{{ .JiraUsername }}"
  # password: prefer CHANGELOG_JIRA_PASSWORD

cache:
  enabled: {{ .CacheEnabled }}
  db_path: "{{ .CacheDBPath }}"
  ttl: {{ .CacheTTL }}

git:
  # cli shells out to git; go-git reads the repository in-process
  backend: {{ .GitBackend }}

output:
  # markdown, json or yaml
  format: {{ .OutputFormat }}

# Custom text/template for markdown output
# template: ~/.config/changelog/changelog.md.tmpl

# Tags extracted concurrently
workers: {{ .Workers }}
`

type configTemplateData struct {
	Repo            string
	ToRef           string
	UntaggedName    string
	ReadableTagName string
	IgnoreCommits   string
	DateFormat      string
	TimeZone        string
	NoIssueName     string
	RemoveIssue     bool
	GitHubEnabled   bool
	JiraServer      string
	JiraUsername    string
	CacheEnabled    bool
	CacheDBPath     string
	CacheTTL        string
	GitBackend      string
	OutputFormat    string
	Workers         int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		Repo:            viper.GetString("repo"),
		ToRef:           viper.GetString("to_ref"),
		UntaggedName:    viper.GetString("untagged_name"),
		ReadableTagName: viper.GetString("readable_tag_name"),
		IgnoreCommits:   viper.GetString("ignore_commits_pattern"),
		DateFormat:      viper.GetString("date_format"),
		TimeZone:        viper.GetString("time_zone"),
		NoIssueName:     viper.GetString("no_issue_name"),
		RemoveIssue:     viper.GetBool("remove_issue_from_message"),
		GitHubEnabled:   viper.GetBool("github.enabled"),
		JiraServer:      viper.GetString("jira.server"),
		JiraUsername:    viper.GetString("jira.username"),
		CacheEnabled:    viper.GetBool("cache.enabled"),
		CacheDBPath:     viper.GetString("cache.db_path"),
		CacheTTL:        viper.GetDuration("cache.ttl").String(),
		GitBackend:      viper.GetString("git.backend"),
		OutputFormat:    viper.GetString("output.format"),
		Workers:         viper.GetInt("workers"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "repo", EnvVar: "CHANGELOG_REPO"},
	{Key: "from_ref", EnvVar: "CHANGELOG_FROM_REF"},
	{Key: "to_ref", EnvVar: "CHANGELOG_TO_REF"},
	{Key: "untagged_name", EnvVar: "CHANGELOG_UNTAGGED_NAME"},
	{Key: "readable_tag_name", EnvVar: "CHANGELOG_READABLE_TAG_NAME"},
	{Key: "ignore_commits_pattern", EnvVar: "CHANGELOG_IGNORE_COMMITS_PATTERN"},
	{Key: "date_format", EnvVar: "CHANGELOG_DATE_FORMAT"},
	{Key: "time_zone", EnvVar: "CHANGELOG_TIME_ZONE"},
	{Key: "no_issue_name", EnvVar: "CHANGELOG_NO_ISSUE_NAME"},
	{Key: "remove_issue_from_message", EnvVar: "CHANGELOG_REMOVE_ISSUE_FROM_MESSAGE"},
	{Key: "github.enabled", EnvVar: "CHANGELOG_GITHUB_ENABLED"},
	{Key: "github.repo", EnvVar: "CHANGELOG_GITHUB_REPO"},
	{Key: "jira.server", EnvVar: "CHANGELOG_JIRA_SERVER"},
	{Key: "jira.username", EnvVar: "CHANGELOG_JIRA_USERNAME"},
	{Key: "jira.password", EnvVar: "CHANGELOG_JIRA_PASSWORD", Secret: true},
	{Key: "cache.enabled", EnvVar: "CHANGELOG_CACHE_ENABLED"},
	{Key: "cache.db_path", EnvVar: "CHANGELOG_CACHE_DB_PATH"},
	{Key: "cache.ttl", EnvVar: "CHANGELOG_CACHE_TTL"},
	{Key: "git.backend", EnvVar: "CHANGELOG_GIT_BACKEND"},
	{Key: "output.format", EnvVar: "CHANGELOG_OUTPUT_FORMAT"},
	{Key: "template", EnvVar: "CHANGELOG_TEMPLATE"},
	{Key: "workers", EnvVar: "CHANGELOG_WORKERS"},
}

// activeConfigFile returns the file viper read, or the default path.
func activeConfigFile() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	return configFilePath()
}

func configShowRun() error {
	cfgPath, err := activeConfigFile()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret && viper.GetString(k.Key) != "" {
			val = "********"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
	}

	for _, key := range []string{"issues", "labels"} {
		if raw, ok := viper.Get(key).([]any); ok && len(raw) > 0 {
			fmt.Fprintf(ui.Out, "  %-26s %d pattern(s)  (file)\n", key, len(raw))
		}
	}
	return nil
}

// readConfigFileValues reads the raw YAML or TOML file and returns a flat
// map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &parsed)
	default:
		err = yaml.Unmarshal(data, &parsed)
	}
	if err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := activeConfigFile()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'changelog config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
