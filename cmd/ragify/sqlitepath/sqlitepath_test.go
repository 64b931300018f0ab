package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolve", func() {
	var (
		origHome   string
		origXDG    string
		origSQLite string
		origCwd    string
	)

	BeforeEach(func() {
		origHome = os.Getenv("HOME")
		origXDG = os.Getenv("XDG_DATA_HOME")
		origSQLite = os.Getenv("RAGIFY_SQLITE")
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
		Expect(os.Setenv("RAGIFY_SQLITE", origSQLite)).To(Succeed())
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("passes non-sqlite providers through unchanged", func() {
		path, err := Resolve("qdrant", "http://localhost:6333", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("http://localhost:6333"))
	})

	It("passes an explicit sqlite target through unchanged", func() {
		path, err := Resolve("sqlite", "/tmp/explicit.db", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/explicit.db"))
	})

	It("prefers RAGIFY_SQLITE when set", func() {
		Expect(os.Setenv("RAGIFY_SQLITE", "/tmp/custom.db")).To(Succeed())

		path, err := Resolve("sqlite", "", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("resolves an existing database in the config dir", func() {
		Expect(os.Setenv("RAGIFY_SQLITE", "")).To(Succeed())

		configDir, err := os.MkdirTemp("", "ragify-config-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(configDir)
		})

		dbPath := filepath.Join(configDir, "ragify.db")
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := Resolve("sqlite", "", configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("resolves ./.ragify/ragify.db when present", func() {
		Expect(os.Setenv("RAGIFY_SQLITE", "")).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())

		tmpDir, err := os.MkdirTemp("", "ragify-cwd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})
		Expect(os.Chdir(tmpDir)).To(Succeed())

		dbPath := filepath.Join(tmpDir, ".ragify", "ragify.db")
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := Resolve("sqlite", "", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(".ragify", "ragify.db")))
	})

	It("defaults to a fresh database in the dot dir", func() {
		Expect(os.Setenv("RAGIFY_SQLITE", "")).To(Succeed())

		configDir, err := os.MkdirTemp("", "ragify-fresh-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(configDir)
		})

		path, err := Resolve("sqlite", "", configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(configDir, "ragify.db")))

		// The directory exists so the driver can create the file on open.
		info, err := os.Stat(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})
})
