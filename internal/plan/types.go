package plan

// ProposedFolder is one target folder suggested by the AI. Path is a
// slash-separated, escape-aware folder path. IsExcluded is a client-side
// veto applied between plan review and assignment finalization; it never
// comes from the AI.
type ProposedFolder struct {
	Path        string `json:"path"`
	Description string `json:"description"`
	IsNew       bool   `json:"isNew"`
	IsExcluded  bool   `json:"isExcluded"`
}

// FolderPlan is the AI-proposed folder set for one organize run.
type FolderPlan struct {
	Folders []ProposedFolder `json:"folders"`
	Summary string           `json:"summary"`
}

// Assignment routes one bookmark to a suggested folder. SuggestedFolderID
// stays empty until the path is resolved against the path→id map; for new
// folders it legitimately stays empty until creation time.
type Assignment struct {
	BookmarkID        string `json:"bookmarkId"`
	BookmarkTitle     string `json:"bookmarkTitle"`
	BookmarkURL       string `json:"bookmarkUrl"`
	CurrentPath       string `json:"currentPath"`
	SuggestedPath     string `json:"suggestedPath"`
	SuggestedFolderID string `json:"suggestedFolderId,omitempty"`
	IsNewFolder       bool   `json:"isNewFolder"`
	IsApproved        bool   `json:"isApproved"`
}

// Result is the parsed outcome of one plan-and-assign AI call.
type Result struct {
	Plan        FolderPlan   `json:"folderPlan"`
	Assignments []Assignment `json:"assignments"`
}
