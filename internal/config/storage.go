package config

// Storage configures the disk-namespaced blob store. Disks are
// subdirectories of Root; product images live on the "public" disk.
type Storage struct {
	Root string `env:"STORAGE_ROOT" envDefault:"./storage"`
}
