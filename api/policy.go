package api

// Policy is the top-level schema of the .argo-helm-updater.yaml file stored
// in the GitOps repository.
type Policy struct {
	// UpdateStrategy bounds upgrades: major, minor, patch, or all.
	UpdateStrategy string `json:"updateStrategy,omitempty"`
	// Ignore rules exclude dependencies, versions, or update types.
	Ignore []IgnoreRule `json:"ignore,omitempty"`
	// Groups restrict sets of dependencies to particular update types.
	Groups []DependencyGroup `json:"groups,omitempty"`
	// Registries carry credentials for private chart registries.
	Registries []Registry `json:"registries,omitempty"`
	// Labels are applied to update pull requests.
	Labels []string `json:"labels,omitempty"`
}

// IgnoreRule excludes versions for dependencies matching a name pattern.
// With neither versions nor updateTypes set, the dependency is never updated.
type IgnoreRule struct {
	DependencyName string   `json:"dependencyName"`
	Versions       []string `json:"versions,omitempty"`
	UpdateTypes    []string `json:"updateTypes,omitempty"`
}

// DependencyGroup names a set of dependencies and the update types they may
// receive.
type DependencyGroup struct {
	Name        string   `json:"name"`
	Patterns    []string `json:"patterns"`
	UpdateTypes []string `json:"updateTypes,omitempty"`
}

// Registry holds credentials for one chart registry. Username and password
// values support ${ENV_VAR} expansion so secrets stay out of the file.
type Registry struct {
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}
