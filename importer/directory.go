package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"dev.hon.one/l2scheme/parsers"
	"dev.hon.one/l2scheme/util"
)

// Subdirectories of a data directory.
const (
	ConfigsDir   = "configs"
	MacTablesDir = "macs"
)

// ImportDirectory imports every configuration under <dir>/configs, then every MAC table under <dir>/macs.
// The device IP of each file is derived from its name. Files of one kind run concurrently on up to workers goroutines.
func (pipeline *Pipeline) ImportDirectory(ctx context.Context, dir string, workers int) (*DirectoryResult, error) {
	if info, err := os.Stat(dir); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if workers < 1 {
		workers = 1
	}

	configPaths, err := listFiles(filepath.Join(dir, ConfigsDir))
	if err != nil {
		return nil, err
	}
	macPaths, err := listFiles(filepath.Join(dir, MacTablesDir))
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"dir":        dir,
		"configs":    len(configPaths),
		"mac_tables": len(macPaths),
	}).Info("Importing data directory")

	result := &DirectoryResult{}
	// MAC tables need the ports of their device, so configurations finish first.
	result.Configs = importFiles(ctx, configPaths, workers, func(path string, deviceIP string, text string) FileResult {
		return FileResult{Path: path, DeviceIP: deviceIP, Config: pipeline.ImportConfigAuto(ctx, text, deviceIP)}
	})
	result.MacTables = importFiles(ctx, macPaths, workers, func(path string, deviceIP string, text string) FileResult {
		return FileResult{Path: path, DeviceIP: deviceIP, MacTable: pipeline.ImportMacTable(ctx, text, deviceIP, parsers.FormatAuto)}
	})

	for _, files := range [][]FileResult{result.Configs, result.MacTables} {
		for _, file := range files {
			if file.Success() {
				result.Succeeded++
			} else {
				result.Failed++
			}
		}
	}
	return result, nil
}

func importFiles(ctx context.Context, paths []string, workers int, importFile func(path string, deviceIP string, text string) FileResult) []FileResult {
	results := make([]FileResult, len(paths))
	workerPool := pool.New().WithMaxGoroutines(workers)
	for i, path := range paths {
		workerPool.Go(func() {
			deviceIP, ok := util.IPFromFilename(path)
			if !ok {
				results[i] = FileResult{Path: path, Error: "cannot derive device IP from file name"}
				return
			}
			if err := ctx.Err(); err != nil {
				results[i] = FileResult{Path: path, DeviceIP: deviceIP, Error: err.Error()}
				return
			}
			text, err := util.ReadTextFile(path)
			if err != nil {
				results[i] = FileResult{Path: path, DeviceIP: deviceIP, Error: err.Error()}
				return
			}
			results[i] = importFile(path, deviceIP, text)
		})
	}
	workerPool.Wait()
	return results
}

// listFiles returns the regular files of dir sorted by name. A missing dir is empty.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
