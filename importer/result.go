package importer

// ConfigStats - Counters of a configuration import.
type ConfigStats struct {
	DeviceID       int64  `json:"device_id"`
	DeviceIP       string `json:"device_ip"`
	DeviceHostname string `json:"device_hostname"`
	DeviceType     string `json:"device_type"`
	Ports          int    `json:"ports_imported"`
	Vlans          int    `json:"vlans_imported"`
	Assignments    int    `json:"assignments_imported"`
	Subscribers    int    `json:"subscribers_found"`
}

// ConfigResult - Outcome of a configuration import. Never nil.
type ConfigResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   string       `json:"error,omitempty"`
	Stats   *ConfigStats `json:"stats,omitempty"`
}

// MacTableStats - Counters of a MAC table import.
type MacTableStats struct {
	EntriesProcessed int    `json:"entries_processed"`
	EntriesImported  int    `json:"entries_imported"`
	EntriesFailed    int    `json:"entries_failed"`
	VlansAnalyzed    int    `json:"vlans_analyzed"`
	DeviceIP         string `json:"device_ip,omitempty"`
	DeviceHostname   string `json:"device_hostname,omitempty"`
}

// VlanAnalysis - Outcome of the topology analysis of one VLAN.
type VlanAnalysis struct {
	VlanID               int    `json:"vlan_id"`
	AnalysisComplete     bool   `json:"analysis_complete"`
	MacSourcesIdentified *int   `json:"mac_sources_identified,omitempty"`
	Error                string `json:"error,omitempty"`
}

// FailedEntry - A parsed entry that could not be stored.
type FailedEntry struct {
	Mac    string `json:"mac"`
	Reason string `json:"reason"`
}

// MacTableResult - Outcome of a MAC table import. Never nil.
type MacTableResult struct {
	Success          bool           `json:"success"`
	Message          string         `json:"message"`
	Error            string         `json:"error,omitempty"`
	Parser           string         `json:"parser,omitempty"`
	Stats            MacTableStats  `json:"stats"`
	TopologyAnalysis []VlanAnalysis `json:"topology_analysis,omitempty"`
	FailedEntries    []FailedEntry  `json:"failed_entries,omitempty"`
}

// FileResult - Outcome of importing one file of a directory.
type FileResult struct {
	Path     string          `json:"path"`
	DeviceIP string          `json:"device_ip"`
	Config   *ConfigResult   `json:"config,omitempty"`
	MacTable *MacTableResult `json:"mac_table,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Success - Whether the file was imported.
func (result FileResult) Success() bool {
	switch {
	case result.Config != nil:
		return result.Config.Success
	case result.MacTable != nil:
		return result.MacTable.Success
	}
	return false
}

// DirectoryResult - Outcome of importing a data directory.
type DirectoryResult struct {
	Configs   []FileResult `json:"configs"`
	MacTables []FileResult `json:"mac_tables"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}
