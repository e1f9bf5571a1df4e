package market

const TopicEvents = "farmlink.events"

// Partition key = correlation id, so every event of one entity keeps its order.
func PartitionKey(id string) []byte { return []byte(id) }
