package db

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// NewSnowflakeNode derives a node number from the hostname so replicas do
// not collide.
func NewSnowflakeNode() (*snowflake.Node, error) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return snowflake.NewNode(1)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}
