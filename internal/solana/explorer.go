package solana

import (
	"fmt"
	"strings"
)

// Cluster names the network an RPC endpoint serves
type Cluster string

const (
	ClusterMainnet Cluster = ""
	ClusterDevnet  Cluster = "devnet"
	ClusterTestnet Cluster = "testnet"
)

// ClusterFromRPCURL guesses the cluster from the RPC endpoint URL
func ClusterFromRPCURL(rpcURL string) Cluster {
	switch {
	case strings.Contains(rpcURL, "devnet"):
		return ClusterDevnet
	case strings.Contains(rpcURL, "testnet"):
		return ClusterTestnet
	default:
		return ClusterMainnet
	}
}

// ExplorerTxURL links a transaction signature on solscan
func ExplorerTxURL(cluster Cluster, signature string) string {
	return explorerURL(cluster, "tx", signature)
}

// ExplorerTokenURL links a token mint on solscan
func ExplorerTokenURL(cluster Cluster, mint string) string {
	return explorerURL(cluster, "token", mint)
}

func explorerURL(cluster Cluster, kind, id string) string {
	if cluster == ClusterMainnet {
		return fmt.Sprintf("https://solscan.io/%s/%s", kind, id)
	}
	return fmt.Sprintf("https://solscan.io/%s/%s?cluster=%s", kind, id, cluster)
}
