package storage

// StorageInterface defines the contract for dataset archiving. Datasets are
// immutable once uploaded; there is deliberately no delete operation.
type StorageInterface interface {
	Store(filename string, data []byte) error
	StoreFile(path string) error
	Retrieve(filename string) ([]byte, error)
	List(prefix string) ([]string, error)
}
