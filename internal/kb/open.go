package kb

import "context"

// Open builds the Store for a knowledge base ID. The ID "local" selects the
// SQLite backend at localPath; anything else is treated as a Bedrock
// knowledge base ID in the given region.
func Open(ctx context.Context, kbID, region, localPath string) (Store, error) {
	if kbID == LocalID {
		return NewLocalStore(localPath)
	}
	return NewBedrockStore(ctx, kbID, region)
}
