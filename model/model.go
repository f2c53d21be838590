package model

import (
	"time"
)

type Config struct {
	Source       string `mapstructure:"source" validate:"oneof=github git"`
	APIURL       string `mapstructure:"apiURL" validate:"omitempty,url"`
	RepoOwner    string `mapstructure:"repoOwner" validate:"required_if=Source github"`
	RepoName     string `mapstructure:"repoName" validate:"required_if=Source github"`
	TargetBranch string `mapstructure:"targetBranch" validate:"required"`
	RepoURL      string `mapstructure:"repoURL" validate:"required_if=Source git,required_if=Deployer compose"`
	SSHKeyPath   string `mapstructure:"sshKeyPath"`

	Deployer         string `mapstructure:"deployer" validate:"oneof=script compose"`
	DeployScript     string `mapstructure:"deployScript" validate:"required_if=Deployer script"`
	Shell            string `mapstructure:"shell" validate:"required_if=Deployer script"`
	WorkDir          string `mapstructure:"workDir"`
	DeploymentDir    string `mapstructure:"deploymentDir" validate:"required_if=Deployer compose"`
	ComposeFile      string `mapstructure:"composeFile" validate:"required_if=Deployer compose"`
	DockerAPIVersion string `mapstructure:"dockerAPIVersion"`

	CheckInterval int    `mapstructure:"checkInterval" validate:"min=1"`
	ErrorDelay    int    `mapstructure:"errorDelay" validate:"min=1"`
	FetchTimeout  int    `mapstructure:"fetchTimeout" validate:"min=1"`
	DryRun        bool   `mapstructure:"dryRun"`
	StatusAddr    string `mapstructure:"statusAddr" validate:"omitempty,hostname_port"`
	LogLevel      string `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
}

// Commit is the latest revision of the tracked branch as reported by a
// commit source. Only Hash takes part in change detection.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message,omitempty"`
	Author  string    `json:"author,omitempty"`
	URL     string    `json:"url,omitempty"`
	Date    time.Time `json:"date"`
}

// Short returns the abbreviated hash used in log lines.
func (c Commit) Short() string {
	if len(c.Hash) > 12 {
		return c.Hash[:12]
	}
	return c.Hash
}

type DeployResult struct {
	ID       string        `json:"id"`
	Commit   Commit        `json:"commit"`
	ExitCode int           `json:"exitCode"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

type Status struct {
	DeployedCommit string        `json:"deployedCommit"`
	LastSeenCommit string        `json:"lastSeenCommit"`
	LastOutcome    string        `json:"lastOutcome"`
	LastError      string        `json:"lastError,omitempty"`
	LastCheck      time.Time     `json:"lastCheck"`
	LastDeploy     *DeployResult `json:"lastDeploy,omitempty"`
	Iterations     int           `json:"iterations"`
	DryRun         bool          `json:"dryRun"`
}
