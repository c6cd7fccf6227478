package ldredis

import (
	"testing"

	r "github.com/gomodule/redigo/redis"

	"github.com/launchdarkly/go-server-sdk-core/subsystems"
	"github.com/launchdarkly/go-server-sdk-core/testhelpers/storetest"
)

const redisURL = "redis://localhost:6379"

func TestRedisDataStore(t *testing.T) {
	storetest.NewPersistentDataStoreTestSuite(makeTestStore, clearTestData).
		ConcurrentModificationHook(setConcurrentModificationHook).
		Run(t)
}

func makeTestStore(prefix string) subsystems.ComponentConfigurer[subsystems.PersistentDataStore] {
	return DataStore().Prefix(prefix)
}

func clearTestData(prefix string) error {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	client, err := r.DialURL(redisURL)
	if err != nil {
		return err
	}
	defer client.Close()

	cursor := "0"
	for {
		resp, err := r.Values(client.Do("SCAN", cursor, "MATCH", prefix+":*"))
		if err != nil {
			return err
		}
		cursor, _ = r.String(resp[0], nil)
		keys, _ := r.Strings(resp[1], nil)
		for _, key := range keys {
			if err := client.Send("DEL", key); err != nil {
				return err
			}
		}
		if err := client.Flush(); err != nil {
			return err
		}
		if cursor == "0" {
			return nil
		}
	}
}

func setConcurrentModificationHook(store subsystems.PersistentDataStore, hook func()) {
	store.(*redisDataStoreImpl).testTxHook = hook
}
