package jobs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// EnvAdditionalFolders is the colon-delimited environment variable naming
// extra job folders to scan, lowest priority.
const EnvAdditionalFolders = "DEEPWORK_ADDITIONAL_JOBS_FOLDERS"

// ProjectJobsDir returns {project_root}/.deepwork/jobs.
func ProjectJobsDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".deepwork", "jobs")
}

// TmpDir returns {project_root}/.deepwork/tmp.
func TmpDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".deepwork", "tmp")
}

// FoldersInPriorityOrder assembles the ordered list of folders to scan for
// job directories: the project's own jobs folder, the bundled standard-jobs
// folder, then any folders named in DEEPWORK_ADDITIONAL_JOBS_FOLDERS.
func FoldersInPriorityOrder(projectRoot, standardJobsDir, envValue string) []string {
	folders := []string{ProjectJobsDir(projectRoot)}
	if standardJobsDir != "" {
		folders = append(folders, standardJobsDir)
	}
	for _, entry := range strings.Split(envValue, ":") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		folders = append(folders, entry)
	}
	return folders
}

// candidateDir is a job directory discovered while scanning, tagged with the
// folder priority it was found at (lower = higher priority).
type candidateDir struct {
	dirName  string
	path     string
	priority int
}

// discoverCandidates scans folders in priority order and returns one
// candidate per distinct directory name, keeping the earliest-priority copy
// when the same directory name appears in more than one folder.
func discoverCandidates(fs afero.Fs, folders []string) []candidateDir {
	seen := make(map[string]bool)
	var candidates []candidateDir

	for priority, folder := range folders {
		info, err := fs.Stat(folder)
		if err != nil || !info.IsDir() {
			continue
		}

		entries, err := afero.ReadDir(fs, folder)
		if err != nil {
			continue
		}

		names := make([]string, 0, len(entries))
		byName := make(map[string]os.FileInfo, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			names = append(names, e.Name())
			byName[e.Name()] = e
		}
		sort.Strings(names)

		for _, name := range names {
			if seen[name] {
				continue
			}
			dirPath := filepath.Join(folder, name)
			jobYML := filepath.Join(dirPath, "job.yml")
			if exists, _ := afero.Exists(fs, jobYML); !exists {
				continue
			}
			seen[name] = true
			candidates = append(candidates, candidateDir{
				dirName:  name,
				path:     dirPath,
				priority: priority,
			})
		}
	}

	return candidates
}
