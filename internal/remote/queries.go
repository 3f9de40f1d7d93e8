package remote

const documentFields = `
	id
	module
	entityId
	documentTypeId
	originalFilename
	mimeType
	fileExtension
	size
	uploadedAt
	deletedAt
	documentType { id name allowedExtensions active }
`

const queryAssignments = `
query DocumentTypeAssignments($module: String!) {
	documentTypeAssignments(module: $module) {
		id
		documentTypeId
		module
		mandatory
		active
		documentType { id name allowedExtensions active }
	}
}`

const queryDocuments = `
query EntityDocuments($module: String!, $entityId: ID!) {
	entityDocuments(module: $module, entityId: $entityId) {` + documentFields + `}
}`

const queryArchived = `
query ArchivedDocuments($module: String!, $entityId: ID!) {
	archivedDocuments(module: $module, entityId: $entityId) {` + documentFields + `
		storagePath
		archivedAt
		archivedBy
	}
}`

const queryArchivedPage = `
query ArchivedDocumentsPage($module: String!, $entityId: ID, $limit: Int!, $offset: Int!) {
	archivedDocumentsPage(module: $module, entityId: $entityId, limit: $limit, offset: $offset) {
		total
		items {` + documentFields + `
			storagePath
			archivedAt
			archivedBy
		}
	}
}`

const querySystemConfig = `
query SystemConfiguration($key: String!) {
	systemConfiguration(key: $key) { key value }
}`

const mutationUpload = `
mutation UploadDocument($input: UploadDocumentInput!) {
	uploadDocument(input: $input) {` + documentFields + `}
}`

const mutationDelete = `
mutation DeleteDocument($id: ID!) {
	deleteDocument(id: $id)
}`

const mutationArchive = `
mutation ArchiveDocument($id: ID!) {
	archiveDocument(id: $id)
}`

const mutationRestore = `
mutation RestoreArchivedDocument($id: ID!) {
	restoreArchivedDocument(id: $id)
}`
