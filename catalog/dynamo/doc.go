// Package dynamo implements catalog.Catalog on Amazon DynamoDB.
//
// Table schema:
//   - Partition key: study (string)
//   - Sort key: target_cost (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name mxmc-sweeps \
//	  --attribute-definitions AttributeName=study,AttributeType=S AttributeName=target_cost,AttributeType=N \
//	  --key-schema AttributeName=study,KeyType=HASH AttributeName=target_cost,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo
