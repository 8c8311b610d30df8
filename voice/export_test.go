package voice

// ReadChunkSize exposes readChunkSize to the external test package.
const ReadChunkSize = readChunkSize
