package storage

import "time"

// InitStore connects to the record store, retrying the initial connection
// since the database may still be starting when the CLI launches.
func InitStore(dbConnStr string) (*PostgresStore, error) {
	var err error
	for i := 0; i < 5; i++ {
		var store *PostgresStore
		store, err = NewPostgresStore(dbConnStr)
		if err == nil {
			return store, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil, err
}
