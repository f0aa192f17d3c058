package history_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/veedubyou/stemsplitter/src/shared/testing"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/history"
	jobentity "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/entity"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
)

var _ = Describe("DynamoStore", func() {
	const (
		testRegion = "history-test"
		tableName  = "StemHistory"
	)

	var (
		ctx   context.Context
		store history.DynamoStore
	)

	BeforeEach(func() {
		if !IntegrationEnabled() {
			Skip("DynamoDB is not available, set " + IntegrationEnvVar + " to run")
		}

		ctx = context.Background()
		db := BeforeSuiteDB(testRegion)
		DeferCleanup(AfterSuiteDB, db)

		store = ExpectSuccess(history.OpenDynamo(ctx, DynamoConfig(testRegion), tableName))
	})

	It("creates the table and round trips a run", func() {
		job := jobentity.NewJob("a.mp3", "/out/a")
		Expect(job.Start(separation.FineTunedHighQuality, device.CPUDevice)).To(Succeed())
		Expect(job.Complete([]string{"/out/a/vocals.wav"})).To(Succeed())

		Expect(store.Record(ctx, history.RecordFromJob("run-1", job, nil))).To(Succeed())
		Expect(store.Record(ctx, history.RecordFromJob("run-2", jobentity.NewJob("b.mp3", "/out/b"), nil))).To(Succeed())

		records := ExpectSuccess(store.ListRun(ctx, "run-1"))
		Expect(records).To(HaveLen(1))
		Expect(records[0].JobID).To(Equal(job.ID))
		Expect(records[0].Model).To(Equal("fine-tuned-high-quality"))
		Expect(records[0].Status).To(Equal("completed"))
		Expect(records[0].Error).To(BeEmpty())
	})

	It("tolerates an existing table", func() {
		_, err := history.OpenDynamo(ctx, DynamoConfig(testRegion), tableName)
		Expect(err).NotTo(HaveOccurred())
	})
})
