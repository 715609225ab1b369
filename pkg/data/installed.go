package data

// InstalledPackage is one record in the installed-package database.
type InstalledPackage struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	InstallPath string `json:"install_path"`

	// RFC3339.
	InstalledAt string `json:"installed_at"`

	Dependencies []string `json:"dependencies,omitempty"`
}
