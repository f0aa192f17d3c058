package testing

import (
	. "github.com/onsi/gomega"
	dynamolib "github.com/veedubyou/stemsplitter/src/shared/lib/dynamo"
)

func MakeTestDB(testRegion string) dynamolib.DynamoDBWrapper {
	return ExpectSuccess(dynamolib.NewDynamoDB(DynamoConfig(testRegion)))
}

func BeforeSuiteDB(testRegion string) dynamolib.DynamoDBWrapper {
	db := MakeTestDB(testRegion)
	DeleteAllTables(db)
	return db
}

func AfterSuiteDB(db dynamolib.DynamoDBWrapper) {
	DeleteAllTables(db)
}

func DeleteAllTables(db dynamolib.DynamoDBWrapper) {
	tableResults := db.ListTables()
	tableNames := ExpectSuccess(tableResults.All())

	for _, tableName := range tableNames {
		err := db.Table(tableName).DeleteTable().Run()
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
	}
}
