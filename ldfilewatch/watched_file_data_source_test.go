package ldfilewatch

import (
	"fmt"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-server-sdk-core/internal/datakinds"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest/mocks"
	"github.com/launchdarkly/go-server-sdk-core/ldcomponents"
	"github.com/launchdarkly/go-server-sdk-core/ldfiledata"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTempFile(t *testing.T, initialText string) string {
	f, err := os.CreateTemp("", "file-source-test")
	require.NoError(t, err)
	f.WriteString(initialText)
	require.NoError(t, f.Close())
	return f.Name()
}

func replaceFileContents(t *testing.T, filename string, text string) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0600)
	require.NoError(t, err)
	f.WriteString(text)
	require.NoError(t, f.Sync())
	f.Close()
}

func requireTrueWithinDuration(t *testing.T, maxTime time.Duration, test func() bool) {
	deadline := time.Now().Add(maxTime)
	for {
		if time.Now().After(deadline) {
			require.FailNowf(t, "Did not see expected change", "waited %v", maxTime)
		}
		if test() {
			return
		}
		time.Sleep(time.Millisecond * 100)
	}
}

func hasFlag(t *testing.T, store subsystems.DataStore, key string, test func(ldmodel.FeatureFlag) bool) bool {
	item, err := store.Get(datakinds.Features, key)
	if assert.NoError(t, err) && item.Item != nil {
		return test(*(item.Item.(*ldmodel.FeatureFlag)))
	}
	return false
}

type testParams struct {
	dataSource subsystems.DataSource
	store      subsystems.DataStore
}

func withTestParams(filePaths []string, action func(testParams)) {
	testContext := sharedtest.NewTestContext("", nil, &subsystems.LoggingConfiguration{Loggers: ldlog.NewDisabledLoggers()})
	store, _ := ldcomponents.InMemoryDataStore().Build(testContext)
	testContext.DataSourceUpdateSink = mocks.NewMockDataSourceUpdates(store)
	factory := ldfiledata.DataSource().FilePaths(filePaths...).Reloader(WatchFiles)
	dataSource, err := factory.Build(testContext)
	if err != nil {
		panic(err)
	}
	defer dataSource.Close()
	action(testParams{dataSource: dataSource, store: testContext.DataSourceUpdateSink.(*mocks.MockDataSourceUpdates).DataStore})
}

func TestNewWatchedFileDataSource(t *testing.T) {
	filename := makeTempFile(t, `
---
flags: bad
`)
	defer os.Remove(filename)

	withTestParams([]string{filename}, func(p testParams) {
		closeWhenReady := make(chan struct{})
		p.dataSource.Start(closeWhenReady)

		// Create the flags file after we start
		time.Sleep(time.Second)
		replaceFileContents(t, filename, `
---
flags:
  my-flag:
    "on": true
`)

		<-closeWhenReady

		// Don't use requireTrueWithinDuration here because the expectation is that as soon as the
		// data source reports being ready (which it will only do once we've given it a valid file),
		// the flag should be available immediately.
		assert.True(t, hasFlag(t, p.store, "my-flag", func(f ldmodel.FeatureFlag) bool {
			return f.On
		}))
		assert.True(t, p.dataSource.IsInitialized())

		// Update the file
		replaceFileContents(t, filename, `
---
flags:
  my-flag:
    "on": false
`)

		requireTrueWithinDuration(t, time.Second, func() bool {
			return hasFlag(t, p.store, "my-flag", func(f ldmodel.FeatureFlag) bool {
				return !f.On
			})
		})
	})
}

// File need not exist when the data source is started
func TestNewWatchedFileMissing(t *testing.T) {
	filename := makeTempFile(t, "")
	require.NoError(t, os.Remove(filename))
	defer os.Remove(filename)

	withTestParams([]string{filename}, func(p testParams) {
		closeWhenReady := make(chan struct{})
		p.dataSource.Start(closeWhenReady)

		time.Sleep(time.Second)
		replaceFileContents(t, filename, `
---
flags:
  my-flag:
    "on": true
`)

		<-closeWhenReady

		requireTrueWithinDuration(t, time.Second, func() bool {
			return hasFlag(t, p.store, "my-flag", func(f ldmodel.FeatureFlag) bool {
				return f.On
			})
		})
		assert.True(t, p.dataSource.IsInitialized())
	})
}

// Directory needn't exist when the data source is started
func TestNewWatchedDirectoryMissing(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "file-source-test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dirPath := path.Join(tempDir, "test")
	filePath := path.Join(dirPath, "flags.yml")

	withTestParams([]string{filePath}, func(p testParams) {
		closeWhenReady := make(chan struct{})
		p.dataSource.Start(closeWhenReady)

		time.Sleep(time.Second)
		err = os.Mkdir(dirPath, 0700)
		require.NoError(t, err)

		time.Sleep(time.Second)
		replaceFileContents(t, filePath, `
---
flags:
  my-flag:
    "on": true
`)

		<-closeWhenReady

		requireTrueWithinDuration(t, time.Second*2, func() bool {
			return hasFlag(t, p.store, "my-flag", func(f ldmodel.FeatureFlag) bool {
				return f.On
			})
		})
		assert.True(t, p.dataSource.IsInitialized())
	})
}

// Keep swapping the file to stress the watcher
func TestFileMayBeReplacedRepeatedly(t *testing.T) {
	filename := makeTempFile(t, "")
	defer os.Remove(filename)

	withTestParams([]string{filename}, func(p testParams) {
		setFlagValue := func(value int) {
			replaceFileContents(t, filename, fmt.Sprintf(`
---
flagValues:
  my-flag: %d
`, value))
		}

		setFlagValue(0)
		closeWhenReady := make(chan struct{})
		p.dataSource.Start(closeWhenReady)
		<-closeWhenReady

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= 5; i++ {
				setFlagValue(i)
				time.Sleep(time.Millisecond * 300)
			}
		}()
		wg.Wait()

		requireTrueWithinDuration(t, time.Second*2, func() bool {
			return hasFlag(t, p.store, "my-flag", func(f ldmodel.FeatureFlag) bool {
				return len(f.Variations) == 1 && f.Variations[0].IntValue() == 5
			})
		})
	})
}
